package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/meridian-db/meridian/config"
	"github.com/meridian-db/meridian/tenant"
)

// printConfigNotFound prints a helpful message when meridian.toml is not
// found in or above the current directory.
func printConfigNotFound() {
	fmt.Println(`meridian.toml not found. Run "meridian init" to create one, or write one by hand:

[tenants.acme]
schema_name = "dbo"`)
}

// loadConfigOrExit loads meridian.toml, printing a helpful message and
// exiting the process if it cannot be found or parsed.
func loadConfigOrExit() *config.Config {
	cfg, err := config.LoadConfig()
	if err != nil {
		printConfigNotFound()
		os.Exit(1)
	}
	return cfg
}

// resolveTenantOrExit resolves one tenant id from cfg, exiting with an
// error message if it cannot be resolved or has no connection string.
func resolveTenantOrExit(cfg *config.Config, tenantID string) tenant.Tenant {
	resolved, err := config.ResolveTenant(cfg, tenantID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if resolved.ConnectionString == "" {
		fmt.Fprintf(os.Stderr, "Error: tenant %q has no connection string configured\n", tenantID)
		os.Exit(1)
	}
	return resolved.ToTenant()
}

// openTenant opens a *sql.DB for t using the go-mssqldb driver.
func openTenant(ctx context.Context, t tenant.Tenant) (*sql.DB, error) {
	db, err := sql.Open("sqlserver", t.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("open connection for tenant %q: %w", t.TenantID, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to tenant %q: %w", t.TenantID, err)
	}
	return db, nil
}

// tenantSchemaName returns t's configured schema, defaulting to "dbo".
func tenantSchemaName(t tenant.Tenant) string {
	if t.SchemaName != nil && *t.SchemaName != "" {
		return *t.SchemaName
	}
	return "dbo"
}
