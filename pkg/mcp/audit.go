package mcp

import (
	"context"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/auth"
)

// Tool call outcomes recorded by the audit logger.
const (
	outcomeSuccess   = "success"
	outcomeToolError = "tool_error"
	outcomeError     = "error"
)

// AuditLogger records every MCP tool call: who called which tool, how long
// it took and how it ended.
type AuditLogger struct {
	logger   *zap.Logger
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec

	// startTimes tracks when tool calls begin, keyed by request ID.
	startTimes sync.Map
}

// NewAuditLogger creates an AuditLogger and registers its metrics with reg.
func NewAuditLogger(reg prometheus.Registerer, logger *zap.Logger) *AuditLogger {
	a := &AuditLogger{
		logger: logger.Named("mcp-audit"),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lakehouse_mcp_tool_calls_total",
			Help: "MCP tool calls by tool and outcome.",
		}, []string{"tool", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lakehouse_mcp_tool_duration_seconds",
			Help:    "MCP tool call latency.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"tool"}),
	}
	reg.MustRegister(a.calls, a.duration)
	return a
}

// Hooks returns mcp-go Hooks configured to capture tool call events.
func (a *AuditLogger) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(a.beforeCallTool)
	hooks.AddAfterCallTool(a.afterCallTool)
	hooks.AddOnError(a.onError)
	return hooks
}

func (a *AuditLogger) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	a.startTimes.Store(id, time.Now())
}

func (a *AuditLogger) afterCallTool(ctx context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	outcome := outcomeSuccess
	if result != nil && result.IsError {
		outcome = outcomeToolError
	}
	a.record(ctx, id, req.Params.Name, outcome, nil)
}

func (a *AuditLogger) onError(ctx context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}
	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}
	a.record(ctx, id, req.Params.Name, outcomeError, err)
}

func (a *AuditLogger) record(ctx context.Context, id any, tool, outcome string, err error) {
	start := time.Now()
	if v, ok := a.startTimes.LoadAndDelete(id); ok {
		start = v.(time.Time)
	}
	elapsed := time.Since(start)

	a.calls.WithLabelValues(tool, outcome).Inc()
	a.duration.WithLabelValues(tool).Observe(elapsed.Seconds())

	fields := []zap.Field{
		zap.String("tool", tool),
		zap.String("outcome", outcome),
		zap.String("user", auth.UsernameFromContext(ctx)),
		zap.Duration("duration", elapsed),
	}
	if err != nil {
		a.logger.Warn("MCP tool call failed", append(fields, zap.Error(err))...)
		return
	}
	a.logger.Info("MCP tool call", fields...)
}
