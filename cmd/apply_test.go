package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridian-db/meridian/executor"
)

func TestParseMode_AcceptsEveryDocumentedMode(t *testing.T) {
	cases := map[string]executor.Mode{
		"dry-run":         executor.ModeDryRun,
		"preview":         executor.ModePreview,
		"interactive":     executor.ModeInteractive,
		"auto-merge":      executor.ModeAutoMerge,
		"impact-analysis": executor.ModeImpactAnalysis,
	}
	for input, want := range cases {
		got, err := parseMode(input)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestParseMode_RejectsUnknownMode(t *testing.T) {
	_, err := parseMode("yolo")
	assert.Error(t, err)
}
