// Package schemafile loads and saves the on-disk desired-state form of an
// entity.Definition set: a JSON array validated against the embedded JSON
// Schema document before it is unmarshaled, and rendered back to either
// JSON or SQL Server DDL (§4.B's alternative, file-based input to the
// Go-literal metadata descriptor provider).
package schemafile

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/meridian-db/meridian/dialect"
	"github.com/meridian-db/meridian/entity"
	"github.com/meridian-db/meridian/planner"
)

//go:embed schema-json/entity.schema.json
var entitySchemaJSON []byte

// Load reads a JSON desired-state file, validates it against the embedded
// entity schema, and unmarshals it strictly (unknown fields are a load
// error, matching the teacher's belt-and-suspenders LoadJSONSchema).
func Load(path string) ([]*entity.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse validates and unmarshals raw JSON, independent of where it came
// from — Load's file-reading wrapped around this.
func Parse(data []byte) ([]*entity.Definition, error) {
	schemaLoader := gojsonschema.NewBytesLoader(entitySchemaJSON)
	docLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("validate desired-state JSON: %w", err)
	}
	if !result.Valid() {
		var msg strings.Builder
		msg.WriteString("desired-state JSON failed schema validation:\n")
		for _, desc := range result.Errors() {
			fmt.Fprintf(&msg, "- %s\n", desc)
		}
		return nil, fmt.Errorf("%s", msg.String())
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	var defs []*entity.Definition
	if err := decoder.Decode(&defs); err != nil {
		return nil, fmt.Errorf("decode desired-state JSON: %w", err)
	}
	return defs, nil
}

// Save writes defs as indented JSON, the inverse of Load.
func Save(path string, defs []*entity.Definition) error {
	data, err := json.MarshalIndent(defs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal desired-state JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write schema file %s: %w", path, err)
	}
	return nil
}

// RenderSQL renders the CREATE-TABLE-and-constraints script every
// definition would produce against an empty database, by running each
// through the planner's own create-table path (oldEntity nil). This is
// meridian convert's --to sql output: a snapshot of "what would this
// schema look like applied fresh", not a migration against any live
// database.
func RenderSQL(d dialect.Adapter, defs []*entity.Definition) (string, error) {
	var sb strings.Builder
	for i, def := range defs {
		plan, err := planner.Plan(context.Background(), d, nil, def, planner.PlanOptions{})
		if err != nil {
			return "", fmt.Errorf("render %s: %w", def.QualifiedName(), err)
		}
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(plan.Script())
	}
	return sb.String(), nil
}
