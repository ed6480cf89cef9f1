package planner

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-db/meridian/dialect"
	"github.com/meridian-db/meridian/entity"
)

func TestPlan_NewTable_EmitsCreateAndConstraintBatches(t *testing.T) {
	d := dialect.NewMSSQL()
	def := &entity.Definition{
		Schema: "dbo",
		Name:   "Customers",
		Columns: []entity.Column{
			{Name: "Id", TypeName: "int", IsIdentity: true},
			{Name: "Email", TypeName: "nvarchar(200)"},
		},
		PrimaryKey: &entity.PrimaryKey{Name: "PK_Customers", Columns: []string{"Id"}, IsAutoGenerated: true},
		Indexes: []entity.Index{
			{Name: "IX_Customers_Email", Columns: []string{"Email"}, IsUnique: true},
		},
	}

	plan, err := Plan(context.Background(), d, nil, def, PlanOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Batches, 2)
	assert.Contains(t, plan.Batches[0].Statements[1].SQL, "CREATE TABLE dbo.Customers")
	assert.Contains(t, plan.Batches[1].Statements[0].SQL, "CREATE UNIQUE INDEX")
	assert.NotEmpty(t, plan.SourceHash)
}

func TestPlan_AddColumn_IsolatedInItsOwnBatch(t *testing.T) {
	d := dialect.NewMSSQL()
	old := &entity.Definition{
		Schema: "dbo", Name: "Customers",
		Columns:    []entity.Column{{Name: "Id", TypeName: "int", IsIdentity: true}},
		PrimaryKey: &entity.PrimaryKey{Name: "PK_Customers", Columns: []string{"Id"}},
	}
	next := &entity.Definition{
		Schema: "dbo", Name: "Customers",
		Columns: []entity.Column{
			{Name: "Id", TypeName: "int", IsIdentity: true},
			{Name: "Phone", TypeName: "nvarchar(30)", IsNullable: true},
		},
		PrimaryKey: &entity.PrimaryKey{Name: "PK_Customers", Columns: []string{"Id"}},
	}

	plan, err := Plan(context.Background(), d, old, next, PlanOptions{})
	require.NoError(t, err)
	require.Len(t, plan.Batches, 1)
	assert.Equal(t, "add-columns", plan.Batches[0].Name)
	assert.Contains(t, plan.Batches[0].Statements[0].SQL, "ADD")
}

func TestPlan_ColumnTypeChange_UsesSafeColumnMigration(t *testing.T) {
	d := dialect.NewMSSQL()
	old := &entity.Definition{
		Schema: "dbo", Name: "Products",
		Columns:    []entity.Column{{Name: "Id", TypeName: "int", IsIdentity: true}, {Name: "Sku", TypeName: "varchar(20)"}},
		PrimaryKey: &entity.PrimaryKey{Name: "PK_Products", Columns: []string{"Id"}},
	}
	next := &entity.Definition{
		Schema: "dbo", Name: "Products",
		Columns:    []entity.Column{{Name: "Id", TypeName: "int", IsIdentity: true}, {Name: "Sku", TypeName: "nvarchar(50)"}},
		PrimaryKey: &entity.PrimaryKey{Name: "PK_Products", Columns: []string{"Id"}},
	}

	plan, err := Plan(context.Background(), d, old, next, PlanOptions{})
	require.NoError(t, err)
	script := plan.Script()
	assert.Contains(t, script, "Sku_New")
	assert.Contains(t, script, "sp_rename")
}

func TestPlan_PrimaryKeyTypeChange_RepointsChildForeignKeys(t *testing.T) {
	d := dialect.NewMSSQL()
	orders := &entity.Definition{
		Schema: "dbo", Name: "Orders",
		Columns: []entity.Column{{Name: "Id", TypeName: "int"}, {Name: "CustomerId", TypeName: "int"}},
		Constraints: []entity.Constraint{
			{Name: "FK_Orders_CustomerId", Type: entity.ConstraintForeignKey, Columns: []string{"CustomerId"}, ReferencedTable: "Customers", ReferencedColumns: []string{"Id"}},
		},
	}
	oldCustomers := &entity.Definition{
		Schema: "dbo", Name: "Customers",
		Columns:    []entity.Column{{Name: "Id", TypeName: "int", IsIdentity: true}},
		PrimaryKey: &entity.PrimaryKey{Name: "PK_Customers", Columns: []string{"Id"}},
	}
	newCustomers := &entity.Definition{
		Schema: "dbo", Name: "Customers",
		Columns:    []entity.Column{{Name: "Id", TypeName: "uniqueidentifier"}},
		PrimaryKey: &entity.PrimaryKey{Name: "PK_Customers", Columns: []string{"Id"}},
	}

	plan, err := Plan(context.Background(), d, oldCustomers, newCustomers, PlanOptions{
		AllCurrentEntities: []*entity.Definition{orders, oldCustomers},
	})
	require.NoError(t, err)
	require.Len(t, plan.Batches, 1)
	assert.Equal(t, "primary-key-migration", plan.Batches[0].Name)
	script := plan.Script()
	assert.Contains(t, script, "FK_Orders_CustomerId")
	assert.Contains(t, script, "Orders")
}

type fakeSafetyContext struct {
	rowCount int64
	hasNulls bool
}

func (f fakeSafetyContext) TableRowCount(context.Context, string, string) (int64, error) {
	return f.rowCount, nil
}

func (f fakeSafetyContext) ColumnHasNulls(context.Context, string, string, string) (bool, error) {
	return f.hasNulls, nil
}

func TestPlan_IdentityToggleOnNonEmptyTable_IsRefused(t *testing.T) {
	d := dialect.NewMSSQL()
	old := &entity.Definition{
		Schema: "dbo", Name: "Items",
		Columns:    []entity.Column{{Name: "Id", TypeName: "int", IsIdentity: false}},
		PrimaryKey: &entity.PrimaryKey{Name: "PK_Items", Columns: []string{"Id"}},
	}
	next := &entity.Definition{
		Schema: "dbo", Name: "Items",
		Columns:    []entity.Column{{Name: "Id", TypeName: "int", IsIdentity: true}},
		PrimaryKey: &entity.PrimaryKey{Name: "PK_Items", Columns: []string{"Id"}},
	}

	diag := NewDiagnostics()
	plan, err := Plan(context.Background(), d, old, next, PlanOptions{
		Safety:      fakeSafetyContext{rowCount: 10},
		Diagnostics: diag,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, diag.Messages)
	foundSkip := false
	for _, b := range plan.Batches {
		for _, s := range b.Statements {
			if s.IsSkip && strings.Contains(s.Description, "identity toggle") {
				foundSkip = true
			}
		}
	}
	assert.True(t, foundSkip)
}

func TestPlan_NotNullTighteningWithExistingNulls_IsRefused(t *testing.T) {
	d := dialect.NewMSSQL()
	old := &entity.Definition{
		Schema: "dbo", Name: "Items",
		Columns:    []entity.Column{{Name: "Id", TypeName: "int", IsIdentity: true}, {Name: "Notes", TypeName: "nvarchar(100)", IsNullable: true}},
		PrimaryKey: &entity.PrimaryKey{Name: "PK_Items", Columns: []string{"Id"}},
	}
	next := &entity.Definition{
		Schema: "dbo", Name: "Items",
		Columns:    []entity.Column{{Name: "Id", TypeName: "int", IsIdentity: true}, {Name: "Notes", TypeName: "nvarchar(100)", IsNullable: false}},
		PrimaryKey: &entity.PrimaryKey{Name: "PK_Items", Columns: []string{"Id"}},
	}

	plan, err := Plan(context.Background(), d, old, next, PlanOptions{
		Safety: fakeSafetyContext{hasNulls: true},
	})
	require.NoError(t, err)
	foundSkip := false
	for _, b := range plan.Batches {
		for _, s := range b.Statements {
			if s.IsSkip && strings.Contains(s.Description, "NOT NULL tightening") {
				foundSkip = true
			}
		}
	}
	assert.True(t, foundSkip)
}

func TestPlan_RoundTrip_NoChangesProducesEmptyAlterBatch(t *testing.T) {
	d := dialect.NewMSSQL()
	def := &entity.Definition{
		Schema: "dbo", Name: "Tags",
		Columns:    []entity.Column{{Name: "Id", TypeName: "int", IsIdentity: true}},
		PrimaryKey: &entity.PrimaryKey{Name: "PK_Tags", Columns: []string{"Id"}},
	}
	plan, err := Plan(context.Background(), d, def, def, PlanOptions{})
	require.NoError(t, err)
	assert.True(t, plan.IsEmpty())
}
