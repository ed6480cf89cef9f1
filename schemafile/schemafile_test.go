package schemafile

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/meridian-db/meridian/dialect"
	"github.com/meridian-db/meridian/entity"
)

func sampleDefs() []*entity.Definition {
	return []*entity.Definition{
		{
			Schema: "dbo",
			Name:   "Orders",
			Columns: []entity.Column{
				{Name: "Id", TypeName: "uniqueidentifier", IsIdentity: false},
				{Name: "Total", TypeName: "decimal(18,2)"},
			},
			PrimaryKey: &entity.PrimaryKey{Name: "PK_Orders", Columns: []string{"Id"}},
		},
	}
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	defs := sampleDefs()

	if err := Save(path, defs); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(defs, loaded); diff != "" {
		t.Errorf("round-tripped definitions differ from the originals (-want +got):\n%s", diff)
	}
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	data := []byte(`[{"Name": "Orders", "Columns": [], "NotAField": true}]`)
	if _, err := Parse(data); err == nil {
		t.Fatal("expected an error for an unrecognized field")
	}
}

func TestParse_RejectsMissingRequiredFields(t *testing.T) {
	data := []byte(`[{"Columns": []}]`)
	if _, err := Parse(data); err == nil {
		t.Fatal("expected an error when Name is missing")
	}
}

func TestRenderSQL_ProducesCreateTableForEachDefinition(t *testing.T) {
	sql, err := RenderSQL(dialect.NewMSSQL(), sampleDefs())
	if err != nil {
		t.Fatalf("RenderSQL() error = %v", err)
	}
	if !strings.Contains(sql, "CREATE TABLE") {
		t.Errorf("expected rendered SQL to contain CREATE TABLE, got:\n%s", sql)
	}
	if !strings.Contains(sql, "Orders") {
		t.Errorf("expected rendered SQL to reference the table name, got:\n%s", sql)
	}
}
