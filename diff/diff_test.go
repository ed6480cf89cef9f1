package diff

import (
	"testing"

	"github.com/meridian-db/meridian/entity"
	"github.com/stretchr/testify/assert"
)

func TestDiff_AddedColumnIsLowSeverity(t *testing.T) {
	oldE := &entity.Definition{Name: "Widgets"}
	newE := &entity.Definition{Name: "Widgets", Columns: []entity.Column{{Name: "Sku", TypeName: "nvarchar(50)"}}}

	items := Diff(oldE, newE)
	assert.Len(t, items, 1)
	assert.Equal(t, Added, items[0].Action)
	assert.Equal(t, Low, items[0].Severity)
}

func TestDiff_DroppedColumnIsHighSeverity(t *testing.T) {
	oldE := &entity.Definition{Name: "Widgets", Columns: []entity.Column{{Name: "Sku", TypeName: "nvarchar(50)"}}}
	newE := &entity.Definition{Name: "Widgets"}

	items := Diff(oldE, newE)
	assert.Len(t, items, 1)
	assert.Equal(t, Dropped, items[0].Action)
	assert.Equal(t, High, items[0].Severity)
}

func TestDiff_NotNullTighteningIsHighSeverity(t *testing.T) {
	oldE := &entity.Definition{Name: "Widgets", Columns: []entity.Column{{Name: "Email", TypeName: "nvarchar(200)", IsNullable: true}}}
	newE := &entity.Definition{Name: "Widgets", Columns: []entity.Column{{Name: "Email", TypeName: "nvarchar(200)", IsNullable: false}}}

	items := Diff(oldE, newE)
	assert.Len(t, items, 1)
	assert.Equal(t, Modified, items[0].Action)
	assert.Equal(t, High, items[0].Severity)
}

// S5 — equivalent CHECK expressions in different surface forms must diff
// to nothing.
func TestDiff_EquivalentChecksProduceNoDiff(t *testing.T) {
	oldE := &entity.Definition{Name: "Products", CheckConstraints: []entity.CheckConstraint{
		{Name: "CK_Price", Expression: "([Price] >= (0) AND [Price] <= (1000))"},
	}}
	newE := &entity.Definition{Name: "Products", CheckConstraints: []entity.CheckConstraint{
		{Name: "CK_Price", Expression: "[Price] BETWEEN 0 AND 1000"},
	}}

	items := Diff(oldE, newE)
	assert.Empty(t, items)
}

func TestDiff_RoundTrip_EmptyWhenIdentical(t *testing.T) {
	def := &entity.Definition{
		Name: "Users",
		Columns: []entity.Column{
			{Name: "Id", TypeName: "uniqueidentifier", IsNullable: false},
			{Name: "Name", TypeName: "nvarchar(100)", IsNullable: false},
		},
		Indexes: []entity.Index{{Name: "IX_Users_Name", Columns: []string{"Name"}}},
	}
	items := Diff(def, def)
	assert.Empty(t, items, "diffing an entity against itself must be empty (§8.1 round-trip)")
}
