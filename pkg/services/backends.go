package services

import (
	"context"

	"github.com/bcgov/unity-ai/pkg/config"
	"github.com/bcgov/unity-ai/pkg/metabase"
)

// CardBackend is the slice of the BI API that services use for saved cards.
type CardBackend interface {
	CreateCard(ctx context.Context, sql string, dbID, collectionID int, name string) (int, error)
	UpdateCardVisualization(ctx context.Context, cardID int, display string, xFields, yFields []string) error
	DeleteCard(ctx context.Context, cardID int) (bool, error)
	ListCardIDs(ctx context.Context) ([]int, error)
	EmbedURL(cardID int) (string, error)
}

// TenantBackends resolves a tenant's mapping and the card backend to use for it.
type TenantBackends interface {
	Resolve(tenantID string) (config.Tenant, CardBackend)
}

type metabaseTenants struct {
	tenants *config.Tenants
	client  *metabase.Client
}

// NewTenantBackends resolves tenants against one Metabase client, switching
// to a tenant's own API key when it has one.
func NewTenantBackends(tenants *config.Tenants, client *metabase.Client) TenantBackends {
	return &metabaseTenants{tenants: tenants, client: client}
}

func (m *metabaseTenants) Resolve(tenantID string) (config.Tenant, CardBackend) {
	tenant := m.tenants.Get(tenantID)
	return tenant, m.client.WithAPIKey(tenant.APIKey)
}

var _ CardBackend = (*metabase.Client)(nil)
