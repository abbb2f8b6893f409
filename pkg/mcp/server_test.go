package mcp

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bcgov/unity-ai/pkg/auth"
)

func TestNewServer(t *testing.T) {
	s := NewServer("test-server", "1.0.0", zap.NewNop())

	require.NotNil(t, s)
	require.NotNil(t, s.mcp)
	assert.NotNil(t, s.logger)
}

func TestServer_MCP(t *testing.T) {
	s := NewServer("test-server", "1.0.0", zap.NewNop())

	assert.Same(t, s.mcp, s.MCP())
}

func TestServer_RegisterTool(t *testing.T) {
	s := NewServer("test-server", "1.0.0", zap.NewNop())

	handlerCalled := false
	s.RegisterTool(mcp.NewTool("test-tool", mcp.WithDescription("A test tool")),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			handlerCalled = true
			return mcp.NewToolResultText("success"), nil
		})
	assert.False(t, handlerCalled, "handler should not be called during registration")

	s.MCP().HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"test-tool","arguments":{}},"id":1}`))
	assert.True(t, handlerCalled)
}

func TestServer_NewStreamableHTTPServer(t *testing.T) {
	s := NewServer("test-server", "1.0.0", zap.NewNop())

	assert.NotNil(t, s.NewStreamableHTTPServer())
}

func TestCallerContext(t *testing.T) {
	req := httptest.NewRequest("POST", "/mcp", nil)
	req.Header.Set(auth.HeaderUserID, "user-1")
	req.Header.Set(auth.HeaderTenant, "alpha")

	caller, ok := auth.GetCaller(callerContext(context.Background(), req))
	require.True(t, ok)
	assert.Equal(t, "user-1", caller.UserID)
	assert.Equal(t, "alpha", caller.TenantID)
}

func TestCallerContext_KeepsExistingCaller(t *testing.T) {
	req := httptest.NewRequest("POST", "/mcp", nil)
	req.Header.Set(auth.HeaderUserID, "someone-else")

	ctx := auth.WithCaller(context.Background(), &auth.Caller{UserID: "user-1"})
	caller, ok := auth.GetCaller(callerContext(ctx, req))
	require.True(t, ok)
	assert.Equal(t, "user-1", caller.UserID)
}

func TestCallerContext_NoHeaders(t *testing.T) {
	req := httptest.NewRequest("POST", "/mcp", nil)

	_, ok := auth.GetCaller(callerContext(context.Background(), req))
	assert.False(t, ok)
}
