package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridian-db/meridian/tenant"
)

func TestTenantSchemaName_DefaultsToDbo(t *testing.T) {
	tn := tenant.Tenant{TenantID: "acme"}
	assert.Equal(t, "dbo", tenantSchemaName(tn))
}

func TestTenantSchemaName_UsesConfiguredSchema(t *testing.T) {
	schema := "sales"
	tn := tenant.Tenant{TenantID: "acme", SchemaName: &schema}
	assert.Equal(t, "sales", tenantSchemaName(tn))
}

func TestTenantSchemaName_TreatsEmptyStringAsUnset(t *testing.T) {
	empty := ""
	tn := tenant.Tenant{TenantID: "acme", SchemaName: &empty}
	assert.Equal(t, "dbo", tenantSchemaName(tn))
}
