package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeExpression_BetweenRewrite(t *testing.T) {
	old := "([Price] >= (0) AND [Price] <= (1000))"
	new := "[Price] BETWEEN 0 AND 1000"
	assert.Equal(t, NormalizeExpression(old), NormalizeExpression(new))
}

func TestNormalizeExpression_BooleanLiterals(t *testing.T) {
	assert.Equal(t, NormalizeExpression("[Active]=TRUE"), NormalizeExpression("[Active]=1"))
	assert.Equal(t, NormalizeExpression("[Active]=FALSE"), NormalizeExpression("[Active]=0"))
}

func TestNormalizeExpression_WhitespaceAndCase(t *testing.T) {
	assert.Equal(t, NormalizeExpression("len([Name])>0"), NormalizeExpression("LEN( [Name] ) > 0"))
}

func TestColumnsEquivalent(t *testing.T) {
	def := "abc"
	a := Column{Name: "c", TypeName: "nvarchar(100)", IsNullable: false, DefaultValue: &def}
	b := Column{Name: "c", TypeName: "NVARCHAR(100)", IsNullable: false, DefaultValue: &def}
	assert.True(t, ColumnsEquivalent(a, b))

	c := Column{Name: "c", TypeName: "nvarchar(max)", IsNullable: false}
	assert.False(t, ColumnsEquivalent(a, c), "max must be distinct from any finite length")
}

func TestConstraintsEquivalent_ColumnOrderInsensitive(t *testing.T) {
	a := Constraint{Type: ConstraintUnique, Columns: []string{"a", "b"}}
	b := Constraint{Type: ConstraintUnique, Columns: []string{"B", "A"}}
	assert.True(t, ConstraintsEquivalent(a, b))
}

func TestIndexesEquivalent_ColumnOrderSensitive(t *testing.T) {
	a := Index{Columns: []string{"a", "b"}}
	b := Index{Columns: []string{"b", "a"}}
	assert.False(t, IndexesEquivalent(a, b), "index column order matters")
}

func TestMergeForeignKeys_Deduplicates(t *testing.T) {
	d := &Definition{
		Name: "Orders",
		Constraints: []Constraint{
			{Type: ConstraintForeignKey, Name: "FK_Orders_CustomerId", Columns: []string{"CustomerId"}, ReferencedTable: "Customers", ReferencedColumns: []string{"Id"}},
		},
		ForeignKeys: []Constraint{
			{Type: ConstraintForeignKey, Name: "FK_Orders_CustomerId_dup", Columns: []string{"customerid"}, ReferencedTable: "customers", ReferencedColumns: []string{"id"}},
		},
	}
	d.MergeForeignKeys()

	fkCount := 0
	for _, c := range d.Constraints {
		if c.Type == ConstraintForeignKey {
			fkCount++
		}
	}
	assert.Equal(t, 1, fkCount)
}
