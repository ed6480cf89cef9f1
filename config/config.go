// Package config loads meridian.toml from the project root and resolves
// per-tenant connection details, overlaying .env.<tenant> files the same
// way the teacher's own project-local TOML-plus-dotenv setup does.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// TenantConfig is one [tenants.<id>] table in meridian.toml.
type TenantConfig struct {
	ConnectionString string `toml:"connection_string"`
	SchemaName       string `toml:"schema_name"`
	Active           *bool  `toml:"active"`
}

// Config is the parsed contents of meridian.toml.
type Config struct {
	HistoryTable   string                  `toml:"history_table"`
	Parallelism    int                     `toml:"parallelism"`
	Tenants        map[string]TenantConfig `toml:"tenants"`
	ConfigFilePath string                  `toml:"-"`
}

// ConfigDir returns the directory meridian.toml was loaded from.
func (c *Config) ConfigDir() string {
	if c.ConfigFilePath == "" {
		return ""
	}
	return filepath.Dir(c.ConfigFilePath)
}

const configFileName = "meridian.toml"

// LoadConfig walks up from the current directory looking for
// meridian.toml, stopping at the first project boundary marker (.git or
// go.mod) it passes without finding one.
func LoadConfig() (*Config, error) {
	path, err := findConfigFile()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.ConfigFilePath = path
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	return &cfg, nil
}

func findConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		candidate := filepath.Join(dir, configFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		if isProjectBoundary(dir) {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("%s not found in the current directory or any parent", configFileName)
}

func isProjectBoundary(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
		return true
	}
	return false
}
