package auth

import (
	"context"
	"fmt"
)

// GetUserIDFromContext extracts the user ID from the caller in the context.
// Returns empty string if no caller is present.
func GetUserIDFromContext(ctx context.Context) string {
	caller, ok := GetCaller(ctx)
	if !ok {
		return ""
	}
	return caller.UserID
}

// GetTenantIDFromContext extracts the tenant ID from the caller in the context.
// Returns empty string if no caller is present.
func GetTenantIDFromContext(ctx context.Context) string {
	caller, ok := GetCaller(ctx)
	if !ok {
		return ""
	}
	return caller.TenantID
}

// RequireCallerFromContext returns the caller or an error when the request
// never passed through RequireAuth.
func RequireCallerFromContext(ctx context.Context) (*Caller, error) {
	caller, ok := GetCaller(ctx)
	if !ok {
		return nil, fmt.Errorf("authentication required: no caller in context")
	}
	if caller.UserID == "" {
		return nil, fmt.Errorf("missing user ID in caller")
	}
	return caller, nil
}
