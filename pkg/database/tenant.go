package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TenantScope is a connection with app.current_tenant set for row-level security.
type TenantScope struct {
	Conn *pgxpool.Conn
}

// Close resets the tenant setting and releases the connection.
// It MUST be called so tenant context never leaks to the next borrower.
func (s *TenantScope) Close() {
	if s.Conn == nil {
		return
	}
	_, _ = s.Conn.Exec(context.Background(), "RESET app.current_tenant")
	s.Conn.Release()
}

// WithTenant acquires a connection scoped to tenantID.
// The returned TenantScope MUST be closed with defer scope.Close().
func (db *DB) WithTenant(ctx context.Context, tenantID string) (*TenantScope, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("tenant id is required")
	}

	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT set_config('app.current_tenant', $1, false)", tenantID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("set tenant context: %w", err)
	}

	return &TenantScope{Conn: conn}, nil
}

// WithoutTenant acquires a connection with no tenant setting; row-level
// policies then admit every tenant's rows. Admin listings use it.
func (db *DB) WithoutTenant(ctx context.Context) (*TenantScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &TenantScope{Conn: conn}, nil
}
