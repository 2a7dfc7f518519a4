package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
)

type healthResult struct {
	Status     string          `json:"status"`
	Version    string          `json:"version"`
	Warehouse  warehouseHealth `json:"warehouse"`
	LLM        llmHealth       `json:"llm"`
	RunHistory bool            `json:"run_history"`
}

type warehouseHealth struct {
	Host string `json:"host"`
	Mode string `json:"mode"`
	Auth string `json:"auth"` // oauth or token
}

type llmHealth struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// RegisterHealthTool adds the "health" tool. It reports how this server is
// wired so an agent can tell which workspace and model it is talking to.
// Nothing is sent to the warehouse.
func RegisterHealthTool(s *server.MCPServer, cfg *config.Config) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server status, version, and the configured warehouse and LLM"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	auth := "token"
	if cfg.Warehouse.UsesOAuth() {
		auth = "oauth"
	}
	result := healthResult{
		Status:  "ok",
		Version: cfg.Version,
		Warehouse: warehouseHealth{
			Host: cfg.Warehouse.ServerHostname,
			Mode: cfg.Warehouse.Mode,
			Auth: auth,
		},
		LLM:        llmHealth{Provider: cfg.LLM.Provider, Model: cfg.LLM.Model},
		RunHistory: cfg.Database.IsConfigured(),
	}

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(result)
	})
}
