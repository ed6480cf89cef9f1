// Package builder derives entity.Definition values from user-declared
// metadata descriptors: it extracts columns, infers primary keys, foreign
// keys, relationships, and CHECK constraints, and topologically orders the
// result so that referenced tables precede their dependents (§4.B).
package builder

import (
	"sort"

	"github.com/meridian-db/meridian/entity"
	"github.com/meridian-db/meridian/metadata"
)

// Trace receives non-fatal notices produced during derivation, such as a
// regular expression that could not be translated to a CHECK pattern.
// A nil Trace is a valid no-op sink.
type Trace func(entityName, message string)

// Build derives the full set of entity definitions — including any
// auto-generated shadow join tables — from the descriptors a Provider
// exposes, and returns them topologically sorted (referenced before
// dependent). It returns a *SchemaCycleError if the FK graph is cyclic.
func Build(provider metadata.Provider, trace Trace) ([]*entity.Definition, error) {
	if trace == nil {
		trace = func(string, string) {}
	}

	descriptors := provider.Descriptors()
	byName := make(map[string]*entity.Definition, len(descriptors))
	descByName := make(map[string]metadata.Descriptor, len(descriptors))

	var ordered []string
	for _, d := range descriptors {
		def := &entity.Definition{
			Schema:  "dbo",
			Name:    d.EntityName,
			CLRType: d.CLRType,
		}
		extractColumns(def, d)
		identifyPrimaryKey(def, d)
		byName[d.EntityName] = def
		descByName[d.EntityName] = d
		ordered = append(ordered, d.EntityName)
	}

	for _, name := range ordered {
		discoverForeignKeys(byName[name], descByName[name], byName)
	}

	shadows := inferCollectionRelationships(byName, descByName)
	for _, s := range shadows {
		byName[s.Name] = s
		ordered = append(ordered, s.Name)
	}

	for _, name := range ordered {
		inferOneToOne(byName[name], descByName[name], byName)
	}

	for _, name := range ordered {
		inferChecks(byName[name], descByName[name], trace)
	}

	for _, def := range byName {
		def.MergeForeignKeys()
	}

	sorted, err := topoSort(byName)
	if err != nil {
		return nil, err
	}
	return sorted, nil
}

func extractColumns(def *entity.Definition, d metadata.Descriptor) {
	for _, m := range d.Members {
		if m.Kind != metadata.KindScalar {
			continue
		}
		def.Columns = append(def.Columns, entity.Column{
			Name:         m.Name,
			TypeName:     m.SQLTypeName,
			IsNullable:   m.IsNullable,
			DefaultValue: m.DefaultValue,
		})
	}
}

func identifyPrimaryKey(def *entity.Definition, d metadata.Descriptor) {
	var keyCols []string
	for _, m := range d.Members {
		if m.Kind == metadata.KindScalar && m.Has(metadata.AnnotationKey) {
			keyCols = append(keyCols, m.Name)
		}
	}
	if len(keyCols) == 0 {
		return
	}

	def.PrimaryKey = &entity.PrimaryKey{
		Name:            "PK_" + def.Name,
		Columns:         keyCols,
		IsAutoGenerated: len(keyCols) == 1,
	}

	if len(keyCols) > 1 {
		// Composite PK: identity is meaningless and must be disabled.
		for i, c := range def.Columns {
			if containsFold(keyCols, c.Name) {
				def.Columns[i].IsIdentity = false
			}
		}
	} else {
		for i, c := range def.Columns {
			if equalFold(c.Name, keyCols[0]) {
				def.Columns[i].IsIdentity = true
			}
		}
	}

	def.Constraints = append(def.Constraints, entity.Constraint{
		Name:    def.PrimaryKey.Name,
		Type:    entity.ConstraintPrimaryKey,
		Columns: keyCols,
	})
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if equalFold(v, s) {
			return true
		}
	}
	return false
}

func equalFold(a, b string) bool {
	return len(a) == len(b) && sortableFold(a) == sortableFold(b)
}

func sortableFold(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// sortedKeys is a small shared helper used by the relationship inference
// code to get deterministic iteration order over the entity map.
func sortedKeys(m map[string]*entity.Definition) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
