package safety

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridian-db/meridian/planner"
)

func TestAnalyze_DropColumnIsUnsafe(t *testing.T) {
	p := &planner.Plan{
		Batches: []planner.Batch{{
			Statements: []planner.Statement{
				{SQL: "ALTER TABLE dbo.Orders DROP COLUMN LegacyNote", Description: "Drop old column Orders.LegacyNote"},
			},
		}},
	}
	result := Analyze(p, nil)
	assert.False(t, result.IsSafe)
	assert.Len(t, result.UnsafeCommands, 1)
}

func TestAnalyze_AddColumnIsSafe(t *testing.T) {
	p := &planner.Plan{
		Batches: []planner.Batch{{
			Statements: []planner.Statement{
				{SQL: "ALTER TABLE dbo.Orders ADD Notes nvarchar(100)", Description: "Add column Orders.Notes"},
			},
		}},
	}
	result := Analyze(p, nil)
	assert.True(t, result.IsSafe)
	assert.Len(t, result.SafeCommands, 1)
}

func TestAnalyze_CheckAdditionIsAlwaysSafe(t *testing.T) {
	p := &planner.Plan{
		Batches: []planner.Batch{{
			Statements: []planner.Statement{
				{SQL: "ALTER TABLE dbo.Orders ADD CONSTRAINT CK_Orders_Total CHECK ([Total]>=0)", Description: "Add CHECK CK_Orders_Total"},
			},
		}},
	}
	result := Analyze(p, nil)
	assert.True(t, result.IsSafe)
}

func TestAnalyze_CheckDropOnPrimaryKeyMigrationColumnIsExempt(t *testing.T) {
	p := &planner.Plan{
		Batches: []planner.Batch{{
			Statements: []planner.Statement{
				{SQL: "ALTER TABLE dbo.Orders DROP CONSTRAINT CK_Orders_Id_Range", Description: "Drop CHECK CK_Orders_Id_Range referencing migrated PK column"},
			},
		}},
	}
	result := Analyze(p, map[string]bool{"id": true})
	assert.True(t, result.IsSafe)
}

func TestAnalyze_DropAndReAddSameCheckIsReconciled(t *testing.T) {
	p := &planner.Plan{
		Batches: []planner.Batch{{
			Statements: []planner.Statement{
				{SQL: "ALTER TABLE dbo.Orders DROP CONSTRAINT CK_Orders_Total", Description: "Drop CHECK CK_Orders_Total"},
				{SQL: "ALTER TABLE dbo.Orders ADD CONSTRAINT CK_Orders_Total CHECK ([Total]>=0)", Description: "Add CHECK CK_Orders_Total"},
			},
		}},
	}
	result := Analyze(p, nil)
	assert.True(t, result.IsSafe)
	assert.Empty(t, result.UnsafeCommands)
}

func TestAnalyze_DropAndReAddSameIndexIsReconciled(t *testing.T) {
	p := &planner.Plan{
		Batches: []planner.Batch{{
			Statements: []planner.Statement{
				{SQL: "DROP INDEX IX_Orders_CustomerId ON dbo.Orders", Description: "Drop index IX_Orders_CustomerId"},
				{SQL: "CREATE INDEX IX_Orders_CustomerId ON dbo.Orders (CustomerId)", Description: "Create index IX_Orders_CustomerId"},
			},
		}},
	}
	result := Analyze(p, nil)
	assert.True(t, result.IsSafe)
}

func TestAnalyze_DropIndexWithoutReAddStaysUnsafe(t *testing.T) {
	p := &planner.Plan{
		Batches: []planner.Batch{{
			Statements: []planner.Statement{
				{SQL: "DROP INDEX IX_Orders_CustomerId ON dbo.Orders", Description: "Drop index IX_Orders_CustomerId"},
			},
		}},
	}
	result := Analyze(p, nil)
	assert.False(t, result.IsSafe)
	assert.Len(t, result.UnsafeCommands, 1)
}

func TestAnalyze_SkippedStatementsAreIgnored(t *testing.T) {
	p := &planner.Plan{
		Batches: []planner.Batch{{
			Statements: []planner.Statement{
				{IsSkip: true, Description: "identity toggle refused"},
			},
		}},
	}
	result := Analyze(p, nil)
	assert.True(t, result.IsSafe)
	assert.Empty(t, result.SafeCommands)
	assert.Empty(t, result.UnsafeCommands)
}
