package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTenant_UsesConfigTableWhenNoDotenvOrEnvVar(t *testing.T) {
	cfg := &Config{Tenants: map[string]TenantConfig{
		"acme": {ConnectionString: "sqlserver://acme", SchemaName: "acme_schema"},
	}}
	r, err := ResolveTenant(cfg, "acme")
	require.NoError(t, err)
	assert.Equal(t, "sqlserver://acme", r.ConnectionString)
	assert.Equal(t, "acme_schema", r.SchemaName)
	assert.True(t, r.IsActive)
	assert.False(t, r.FromDotenv)
}

func TestResolveTenant_DotenvOverridesConfigTable(t *testing.T) {
	dir := t.TempDir()
	dotenvPath := filepath.Join(dir, ".env.acme")
	require.NoError(t, os.WriteFile(dotenvPath, []byte("CONNECTION_STRING=sqlserver://acme-dotenv\nSCHEMA_NAME=acme_dotenv_schema\n"), 0o600))

	cfg := &Config{
		ConfigFilePath: filepath.Join(dir, configFileName),
		Tenants: map[string]TenantConfig{
			"acme": {ConnectionString: "sqlserver://acme-toml"},
		},
	}

	r, err := ResolveTenant(cfg, "acme")
	require.NoError(t, err)
	assert.Equal(t, "sqlserver://acme-dotenv", r.ConnectionString)
	assert.Equal(t, "acme_dotenv_schema", r.SchemaName)
	assert.True(t, r.FromDotenv)
}

func TestResolveTenant_EnvironmentVariableOverridesDotenv(t *testing.T) {
	dir := t.TempDir()
	dotenvPath := filepath.Join(dir, ".env.acme")
	require.NoError(t, os.WriteFile(dotenvPath, []byte("CONNECTION_STRING=sqlserver://acme-dotenv\n"), 0o600))

	t.Setenv("CONNECTION_STRING_acme", "sqlserver://acme-env-var")

	cfg := &Config{ConfigFilePath: filepath.Join(dir, configFileName)}
	r, err := ResolveTenant(cfg, "acme")
	require.NoError(t, err)
	assert.Equal(t, "sqlserver://acme-env-var", r.ConnectionString)
}

func TestResolveTenant_InactiveFlagIsHonored(t *testing.T) {
	inactive := false
	cfg := &Config{Tenants: map[string]TenantConfig{
		"acme": {Active: &inactive},
	}}
	r, err := ResolveTenant(cfg, "acme")
	require.NoError(t, err)
	assert.False(t, r.IsActive)
}

func TestResolveAllTenants_ReturnsOneEntryPerConfiguredTenant(t *testing.T) {
	cfg := &Config{Tenants: map[string]TenantConfig{
		"acme":   {ConnectionString: "sqlserver://acme"},
		"globex": {ConnectionString: "sqlserver://globex"},
	}}
	tenants, err := ResolveAllTenants(cfg)
	require.NoError(t, err)
	assert.Len(t, tenants, 2)
}
