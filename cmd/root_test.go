package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCmd_RegistersEveryTopLevelCommand(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"init", "introspect", "plan", "apply", "rollback", "validate", "convert", "tenants", "version"} {
		assert.True(t, names[want], "expected %q to be registered under the root command", want)
	}
}

func TestRootCmd_VersionIsNeverEmpty(t *testing.T) {
	assert.NotEmpty(t, rootCmd.Version)
}

func TestTenantsCmd_RegistersRunSubcommand(t *testing.T) {
	var found bool
	for _, c := range tenantsCmd.Commands() {
		if c.Name() == "run" {
			found = true
		}
	}
	assert.True(t, found, "expected 'tenants run' to be registered")
}
