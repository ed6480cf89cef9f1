package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-db/meridian/dialect"
	"github.com/meridian-db/meridian/entity"
	"github.com/meridian-db/meridian/planner"
)

func samplePlan() *planner.Plan {
	return &planner.Plan{
		Entity:     "Orders",
		SourceHash: "deadbeef",
		Batches: []planner.Batch{
			{
				Name: "add-columns",
				Statements: []planner.Statement{
					{SQL: "ALTER TABLE dbo.Orders ADD Note nvarchar(200) NULL", Description: "Add column Note"},
				},
			},
			{
				Name: "alter",
				Statements: []planner.Statement{
					{SQL: "ALTER TABLE dbo.Orders DROP COLUMN LegacyFlag", Description: "Drop column LegacyFlag"},
				},
			},
		},
	}
}

func TestExecute_DryRunNeverTouchesTheDatabase(t *testing.T) {
	e := NewExecutor(nil, dialect.NewMSSQL(), "dbo")
	result, err := e.Execute(context.Background(), samplePlan(), ExecuteOptions{Mode: ModeDryRun})
	require.NoError(t, err)
	assert.Contains(t, result.Script, "ADD Note")
	assert.False(t, result.Applied)
}

func TestExecute_PreviewReportsSafetyWithoutExecuting(t *testing.T) {
	e := NewExecutor(nil, dialect.NewMSSQL(), "dbo")
	result, err := e.Execute(context.Background(), samplePlan(), ExecuteOptions{
		Mode:            ModePreview,
		ExcludedColumns: map[string]bool{},
	})
	require.NoError(t, err)
	require.NotNil(t, result.Safety)
	assert.False(t, result.Safety.IsSafe)
	assert.Contains(t, result.Safety.UnsafeCommands[0], "DROP COLUMN")
}

func TestExecute_AutoMergeRefusesWhenPlanIsUnsafe(t *testing.T) {
	e := NewExecutor(nil, dialect.NewMSSQL(), "dbo")
	_, err := e.Execute(context.Background(), samplePlan(), ExecuteOptions{Mode: ModeAutoMerge})
	assert.Error(t, err)
}

func TestExecute_ImpactAnalysisRendersMarkdownByDefault(t *testing.T) {
	e := NewExecutor(nil, dialect.NewMSSQL(), "dbo")
	oldE := &entity.Definition{Name: "Orders", Columns: []entity.Column{{Name: "LegacyFlag", TypeName: "bit"}}}
	newE := &entity.Definition{Name: "Orders", Columns: []entity.Column{{Name: "Note", TypeName: "nvarchar(200)", IsNullable: true}}}
	result, err := e.Execute(context.Background(), samplePlan(), ExecuteOptions{
		Mode:      ModeImpactAnalysis,
		OldEntity: oldE,
		NewEntity: newE,
	})
	require.NoError(t, err)
	assert.Contains(t, result.Report, "# Migration impact: Orders")
	assert.Contains(t, result.Report, "Note")
}

func TestExecute_InteractiveWithoutStepFuncIsRejected(t *testing.T) {
	e := NewExecutor(nil, dialect.NewMSSQL(), "dbo")
	_, err := e.Execute(context.Background(), samplePlan(), ExecuteOptions{Mode: ModeInteractive})
	assert.Error(t, err)
}
