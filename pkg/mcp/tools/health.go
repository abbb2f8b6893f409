package tools

import (
	"context"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type healthResult struct {
	Status  string   `json:"status"`
	Version string   `json:"version"`
	Tenants []string `json:"tenants"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool reports the server version and the tenants it can answer for.
func RegisterHealthTool(s *server.MCPServer, version string, tenants TenantResolver) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version and configured tenants"),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids := tenants.IDs()
		sort.Strings(ids)
		return newJSONResult(healthResult{Status: "ok", Version: version, Tenants: ids})
	})
}
