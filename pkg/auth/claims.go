// Package auth identifies the caller of a request. Authentication happens
// upstream: the gateway forwards the verified user, tenant and admin flag as
// headers, and this package turns them into a Caller on the request context.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Headers set by the upstream gateway.
const (
	HeaderUserID  = "X-User-ID"
	HeaderTenant  = "X-Tenant-ID"
	HeaderIsAdmin = "X-User-Admin"
)

// DefaultTenant is assumed when the gateway omits the tenant header.
const DefaultTenant = "default"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// CallerKey is the context key for storing the Caller.
const CallerKey contextKey = "caller"

// Caller is the identity a request acts on behalf of.
type Caller struct {
	UserID   string
	TenantID string
	IsAdmin  bool
}

// CallerFromRequest reads the identity headers. A missing user id is an
// error; a missing tenant falls back to DefaultTenant.
func CallerFromRequest(r *http.Request) (*Caller, error) {
	userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if userID == "" {
		return nil, fmt.Errorf("missing %s header", HeaderUserID)
	}

	tenantID := strings.TrimSpace(r.Header.Get(HeaderTenant))
	if tenantID == "" {
		tenantID = DefaultTenant
	}

	isAdmin, _ := strconv.ParseBool(strings.TrimSpace(r.Header.Get(HeaderIsAdmin)))

	return &Caller{UserID: userID, TenantID: tenantID, IsAdmin: isAdmin}, nil
}

// WithCaller stores the caller in ctx.
func WithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, CallerKey, caller)
}

// GetCaller retrieves the caller from the request context.
// Returns nil and false if not present.
func GetCaller(ctx context.Context) (*Caller, bool) {
	caller, ok := ctx.Value(CallerKey).(*Caller)
	return caller, ok && caller != nil
}
