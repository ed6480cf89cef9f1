package wizard

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

const configFileName = "meridian.toml"

type tomlTenant struct {
	ConnectionString string `toml:"connection_string,omitempty"`
	SchemaName       string `toml:"schema_name,omitempty"`
}

type tomlConfig struct {
	Parallelism int                   `toml:"parallelism"`
	Tenants     map[string]tomlTenant `toml:"tenants"`
}

// GenerateFiles writes meridian.toml (merging with any existing file)
// and a .env.<tenant> holding the connection string, mirroring the
// config-in-TOML / secrets-in-dotenv split the rest of the module reads
// back via the config package.
func GenerateFiles(input TenantInput) (*InitResult, error) {
	result := &InitResult{ConfigPath: configFileName}

	existing := tomlConfig{Tenants: make(map[string]tomlTenant)}
	fileExists := false
	if data, err := os.ReadFile(configFileName); err == nil {
		fileExists = true
		if err := toml.Unmarshal(data, &existing); err != nil {
			return nil, fmt.Errorf("parse existing %s: %w", configFileName, err)
		}
		if existing.Tenants == nil {
			existing.Tenants = make(map[string]tomlTenant)
		}
	}
	if existing.Parallelism <= 0 {
		existing.Parallelism = 1
	}

	existing.Tenants[input.TenantID] = tomlTenant{SchemaName: input.SchemaName}

	data, err := toml.Marshal(existing)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", configFileName, err)
	}
	if err := os.WriteFile(configFileName, data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", configFileName, err)
	}
	if fileExists {
		result.ConfigUpdated = true
	} else {
		result.ConfigCreated = true
	}

	envPath := ".env." + input.TenantID
	envContents := fmt.Sprintf("CONNECTION_STRING=%s\n", input.ConnectionString)
	if err := os.WriteFile(envPath, []byte(envContents), 0o600); err != nil {
		return nil, fmt.Errorf("write %s: %w", envPath, err)
	}
	result.EnvFilePath = envPath

	return result, nil
}
