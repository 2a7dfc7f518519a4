// Package mcp exposes the catalog browser to MCP clients over streamable HTTP.
package mcp

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/middleware"
)

const instructions = "Read-only access to Databricks Unity Catalog metadata. " +
	"Browse catalogs, schemas and tables, preview rows and draft table or column descriptions. " +
	"Call health first to see which workspace and model this server uses."

// Server wraps the mcp-go MCPServer.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates an MCP server with tool capabilities enabled.
// Extra options such as hooks are passed through to mcp-go.
func NewServer(name, version string, logger *zap.Logger, opts ...server.ServerOption) *Server {
	opts = append([]server.ServerOption{
		server.WithToolCapabilities(true),
		server.WithInstructions(instructions),
	}, opts...)

	return &Server{
		mcp:    server.NewMCPServer(name, version, opts...),
		logger: logger.Named("mcp"),
	}
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Handler returns the stateless streamable HTTP transport with JSON-RPC
// request logging. The caller mounts it at /mcp.
func (s *Server) Handler() http.Handler {
	transport := server.NewStreamableHTTPServer(s.mcp, server.WithStateLess(true))
	return middleware.MCPRequestLogger(s.logger)(transport)
}
