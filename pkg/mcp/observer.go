package mcp

import (
	"context"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	toolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "unity_ai",
			Subsystem: "mcp",
			Name:      "tool_calls_total",
			Help:      "MCP tool calls by tool and outcome.",
		},
		[]string{"tool", "outcome"},
	)
	toolDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "unity_ai",
			Subsystem: "mcp",
			Name:      "tool_duration_seconds",
			Help:      "MCP tool call latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
		[]string{"tool"},
	)
)

func init() {
	prometheus.MustRegister(toolCalls, toolDuration)
}

// Tool call outcomes.
const (
	outcomeSuccess   = "success"
	outcomeToolError = "tool_error"
	outcomeFailed    = "failed"
)

// ToolObserver records MCP tool calls as metrics and log entries.
type ToolObserver struct {
	logger *zap.Logger

	// started tracks when tool calls begin, keyed by request ID.
	started sync.Map
}

// NewToolObserver creates a ToolObserver.
func NewToolObserver(logger *zap.Logger) *ToolObserver {
	return &ToolObserver{logger: logger}
}

// Hooks returns mcp-go Hooks that capture tool call events.
func (o *ToolObserver) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(o.beforeCallTool)
	hooks.AddAfterCallTool(o.afterCallTool)
	hooks.AddOnError(o.onError)
	return hooks
}

func (o *ToolObserver) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	o.started.Store(id, time.Now())
}

func (o *ToolObserver) afterCallTool(_ context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	outcome := outcomeSuccess
	if result != nil && result.IsError {
		outcome = outcomeToolError
	}
	o.record(id, req.Params.Name, outcome)
}

func (o *ToolObserver) onError(_ context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}
	tool := ""
	if req, ok := message.(*mcplib.CallToolRequest); ok {
		tool = req.Params.Name
	}
	o.logger.Warn("MCP tool call failed", zap.String("tool", tool), zap.Error(err))
	o.record(id, tool, outcomeFailed)
}

func (o *ToolObserver) record(id any, tool, outcome string) {
	toolCalls.WithLabelValues(tool, outcome).Inc()

	if v, ok := o.started.LoadAndDelete(id); ok {
		elapsed := time.Since(v.(time.Time))
		toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
		o.logger.Debug("MCP tool call",
			zap.String("tool", tool),
			zap.String("outcome", outcome),
			zap.Duration("duration", elapsed))
	}
}
