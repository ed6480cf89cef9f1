package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/meridian-db/meridian/tenant"
)

// ResolvedTenant is one tenant's connection details after layering
// meridian.toml, a .env.<tenantID> file, and process environment
// variables, in increasing priority order.
type ResolvedTenant struct {
	TenantID         string
	ConnectionString string
	SchemaName       string
	IsActive         bool
	FromDotenv       bool
	DotenvPath       string
}

// ResolveTenant builds the connection details for one tenant id,
// layering: meridian.toml's [tenants.<id>] table, then a .env.<id> file
// beside meridian.toml, then CONNECTION_STRING_<ID>/SCHEMA_NAME_<ID>
// process environment variables, each overriding the one before it.
func ResolveTenant(cfg *Config, tenantID string) (*ResolvedTenant, error) {
	resolved := &ResolvedTenant{TenantID: tenantID, IsActive: true}

	if cfg != nil {
		if tc, ok := cfg.Tenants[tenantID]; ok {
			resolved.ConnectionString = tc.ConnectionString
			resolved.SchemaName = tc.SchemaName
			if tc.Active != nil {
				resolved.IsActive = *tc.Active
			}
		}
	}

	baseDir := "."
	if cfg != nil && cfg.ConfigDir() != "" {
		baseDir = cfg.ConfigDir()
	}
	resolved.DotenvPath = filepath.Join(baseDir, ".env."+tenantID)

	if info, err := os.Stat(resolved.DotenvPath); err == nil && !info.IsDir() {
		values, err := godotenv.Read(resolved.DotenvPath)
		if err != nil {
			return nil, err
		}
		resolved.FromDotenv = true
		if v := values["CONNECTION_STRING"]; v != "" {
			resolved.ConnectionString = v
		}
		if v := values["SCHEMA_NAME"]; v != "" {
			resolved.SchemaName = v
		}
	}

	if v := os.Getenv("CONNECTION_STRING_" + tenantID); v != "" {
		resolved.ConnectionString = v
	}
	if v := os.Getenv("SCHEMA_NAME_" + tenantID); v != "" {
		resolved.SchemaName = v
	}

	return resolved, nil
}

// ToTenant converts a resolved tenant into the tenant package's runtime
// type, ready for handing to the orchestrator.
func (r *ResolvedTenant) ToTenant() tenant.Tenant {
	var schemaName *string
	if r.SchemaName != "" {
		s := r.SchemaName
		schemaName = &s
	}
	return tenant.Tenant{
		TenantID:         r.TenantID,
		SchemaName:       schemaName,
		ConnectionString: r.ConnectionString,
		IsActive:         r.IsActive,
	}
}

// ResolveAllTenants resolves every tenant named in cfg.Tenants.
func ResolveAllTenants(cfg *Config) ([]tenant.Tenant, error) {
	var out []tenant.Tenant
	for id := range cfg.Tenants {
		r, err := ResolveTenant(cfg, id)
		if err != nil {
			return nil, err
		}
		out = append(out, r.ToTenant())
	}
	return out, nil
}
