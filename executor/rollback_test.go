package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meridian-db/meridian/dialect"
	"github.com/meridian-db/meridian/diff"
)

func TestBuildRollback_AddedColumnBecomesDropColumn(t *testing.T) {
	plan := BuildRollback(dialect.NewMSSQL(), "dbo", []diff.ImpactItem{
		{Type: diff.ColumnItem, Action: diff.Added, Table: "Orders", Name: "Note"},
	})
	assert.Len(t, plan.Statements, 1)
	assert.Contains(t, plan.Statements[0], "DROP COLUMN")
	assert.Contains(t, plan.Statements[0], "Note")
	assert.Empty(t, plan.Irreversible)
}

func TestBuildRollback_ModifiedColumnWithOriginalTypeRestoresIt(t *testing.T) {
	plan := BuildRollback(dialect.NewMSSQL(), "dbo", []diff.ImpactItem{
		{Type: diff.ColumnItem, Action: diff.Modified, Table: "Orders", Name: "Total", OriginalType: "decimal(10,2)"},
	})
	assert.Len(t, plan.Statements, 1)
	assert.Contains(t, plan.Statements[0], "ALTER COLUMN")
	assert.Contains(t, plan.Statements[0], "decimal(10,2)")
}

func TestBuildRollback_ModifiedColumnWithoutOriginalTypeIsIrreversible(t *testing.T) {
	plan := BuildRollback(dialect.NewMSSQL(), "dbo", []diff.ImpactItem{
		{Type: diff.ColumnItem, Action: diff.Modified, Table: "Orders", Name: "Total"},
	})
	assert.Empty(t, plan.Statements)
	assert.Len(t, plan.Irreversible, 1)
}

func TestBuildRollback_DroppedItemsAreAlwaysIrreversible(t *testing.T) {
	plan := BuildRollback(dialect.NewMSSQL(), "dbo", []diff.ImpactItem{
		{Type: diff.ColumnItem, Action: diff.Dropped, Table: "Orders", Name: "LegacyFlag"},
	})
	assert.Empty(t, plan.Statements)
	assert.Len(t, plan.Irreversible, 1)
	assert.Contains(t, plan.Irreversible[0], "LegacyFlag")
}

func TestBuildRollback_AddedIndexAndConstraintAreDropped(t *testing.T) {
	plan := BuildRollback(dialect.NewMSSQL(), "dbo", []diff.ImpactItem{
		{Type: diff.IndexItem, Action: diff.Added, Table: "Orders", Name: "IX_Orders_CustomerId"},
		{Type: diff.ConstraintItem, Action: diff.Added, Table: "Orders", Name: "FK_Orders_CustomerId"},
	})
	assert.Len(t, plan.Statements, 2)
	assert.Contains(t, plan.Statements[0], "DROP INDEX")
	assert.Contains(t, plan.Statements[1], "DROP CONSTRAINT")
}
