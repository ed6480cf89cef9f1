package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMigrationLogger_ReturnsNilWhenPathEmpty(t *testing.T) {
	assert.Nil(t, newMigrationLogger(""))
}

func TestNewMigrationLogger_ReturnsUsableLoggerWhenPathSet(t *testing.T) {
	logger := newMigrationLogger(filepath.Join(t.TempDir(), "migration.log"))
	assert.NotNil(t, logger)
}
