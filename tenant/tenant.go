// Package tenant fans a migration run out across a population of tenants
// with bounded parallelism and per-tenant lifecycle callbacks (§4.H).
package tenant

import "time"

// Tenant is one addressable target: its own database or schema, reached
// through its own connection string. The orchestrator treats it as
// opaque data handed in from an external Tenant Store; it never mutates
// a Tenant itself.
type Tenant struct {
	TenantID         string
	SchemaName       *string
	ConnectionString string
	IsActive         bool
	Metadata         map[string]string
}

// MigrationRunReport is the outcome of running the migration pipeline
// against one tenant (or, nested inside an aggregate report, one
// entity within that tenant's run).
type MigrationRunReport struct {
	TenantID          string
	Duration          time.Duration
	MigrationsApplied bool
	ImpactAnalysisRan bool
	ImpactSummary     string
	Err               error
}
