package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FindsFileInCurrentDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, configFileName)
	require.NoError(t, os.WriteFile(path, []byte("parallelism = 4\nhistory_table = \"custom_history\"\n\n[tenants.acme]\nconnection_string = \"sqlserver://acme\"\n"), 0o600))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Parallelism)
	assert.Equal(t, "custom_history", cfg.HistoryTable)
	assert.Equal(t, "sqlserver://acme", cfg.Tenants["acme"].ConnectionString)
}

func TestLoadConfig_DefaultsParallelismToOne(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, configFileName)
	require.NoError(t, os.WriteFile(path, []byte(""), 0o600))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Parallelism)
}

func TestLoadConfig_MissingFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(cwd)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module scratch\n"), 0o600))

	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestConfig_ConfigDirReturnsEmptyWhenUnloaded(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, "", cfg.ConfigDir())
}
