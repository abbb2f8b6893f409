package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultTenant is the mapping used for unknown tenant ids.
const DefaultTenant = "default"

// Tenant maps a tenant to its BI database and card collection.
type Tenant struct {
	DBID         int      `yaml:"db_id" json:"db_id"`
	CollectionID int      `yaml:"collection_id" json:"collection_id"`
	SchemaTypes  []string `yaml:"schema_types" json:"schema_types"`
	// APIKey overrides the global Metabase key for this tenant.
	APIKey string `yaml:"api_key" json:"-"`
}

// Tenants holds every configured tenant mapping.
type Tenants struct {
	byID map[string]Tenant
}

// NewTenants builds a Tenants set. A "default" entry is required.
func NewTenants(byID map[string]Tenant) (*Tenants, error) {
	if _, ok := byID[DefaultTenant]; !ok {
		return nil, fmt.Errorf("tenant mappings must include %q", DefaultTenant)
	}
	return &Tenants{byID: byID}, nil
}

// LoadTenants reads tenant mappings from a JSON or YAML file.
// A file without a "default" key is treated as the default tenant itself.
// A missing file yields a single default tenant. DEFAULT_EMBED_DB_ID
// overrides the default tenant's db_id in both cases.
func LoadTenants(path string) (*Tenants, error) {
	byID := map[string]Tenant{}

	data, err := os.ReadFile(path)
	switch {
	case isNotExist(err) || path == "":
		byID[DefaultTenant] = Tenant{DBID: 5, CollectionID: 16, SchemaTypes: []string{"public"}}
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	default:
		var probe map[string]any
		if err := yaml.Unmarshal(data, &probe); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if _, ok := probe[DefaultTenant]; ok {
			if err := yaml.Unmarshal(data, &byID); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		} else {
			var t Tenant
			if err := yaml.Unmarshal(data, &t); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
			byID[DefaultTenant] = t
		}
	}

	if v := os.Getenv("DEFAULT_EMBED_DB_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("DEFAULT_EMBED_DB_ID: %w", err)
		}
		t := byID[DefaultTenant]
		t.DBID = id
		byID[DefaultTenant] = t
	}

	for id, t := range byID {
		if len(t.SchemaTypes) == 0 {
			t.SchemaTypes = []string{"public"}
			byID[id] = t
		}
	}

	return NewTenants(byID)
}

// Get returns the mapping for id, falling back to the default tenant.
func (t *Tenants) Get(id string) Tenant {
	if tenant, ok := t.byID[id]; ok {
		return tenant
	}
	return t.byID[DefaultTenant]
}

// IDs returns every configured tenant id.
func (t *Tenants) IDs() []string {
	ids := make([]string, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	return ids
}

func isNotExist(err error) bool {
	return err != nil && errors.Is(err, fs.ErrNotExist)
}
