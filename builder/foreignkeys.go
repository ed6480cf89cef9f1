package builder

import (
	"strings"

	"github.com/meridian-db/meridian/entity"
	"github.com/meridian-db/meridian/metadata"
)

// discoverForeignKeys runs the two-pass FK discovery of §4.B.3: explicit
// ForeignKey annotations first, then naming convention, deduplicating
// across both passes by (column, referenced table, referenced column).
func discoverForeignKeys(def *entity.Definition, d metadata.Descriptor, byName map[string]*entity.Definition) {
	navByName := make(map[string]metadata.Member)
	for _, m := range d.Members {
		if m.Kind == metadata.KindReference || m.Kind == metadata.KindCollection {
			navByName[m.Name] = m
		}
	}

	seen := make(map[string]bool)
	addFK := func(column, targetEntity, refColumn string) {
		key := strings.ToLower(column) + "|" + strings.ToLower(targetEntity) + "|" + strings.ToLower(refColumn)
		if seen[key] {
			return
		}
		seen[key] = true
		def.ForeignKeys = append(def.ForeignKeys, entity.Constraint{
			Name:              "FK_" + def.Name + "_" + column,
			Type:              entity.ConstraintForeignKey,
			Columns:           []string{column},
			ReferencedSchema:  "dbo",
			ReferencedTable:   targetEntity,
			ReferencedColumns: []string{refColumn},
			OnDelete:          entity.Cascade,
			OnUpdate:          entity.NoAction,
		})
	}

	// Pass 1: explicit FK annotation — a scalar member marked ForeignKey
	// pointing at a navigation member name.
	for _, m := range d.Members {
		if m.Kind != metadata.KindScalar {
			continue
		}
		ann, ok := m.Find(metadata.AnnotationForeignKey)
		if !ok {
			continue
		}
		nav, ok := navByName[ann.Args["navigation"]]
		if !ok {
			continue
		}
		target := byName[nav.TargetEntity]
		refColumn := "Id"
		if target != nil && target.PrimaryKey != nil && len(target.PrimaryKey.Columns) == 1 {
			refColumn = target.PrimaryKey.Columns[0]
		}
		addFK(m.Name, nav.TargetEntity, refColumn)
	}

	// Pass 2: naming convention — a column ending in "Id" whose stripped
	// prefix names a navigation member.
	for _, m := range d.Members {
		if m.Kind != metadata.KindScalar {
			continue
		}
		if !strings.HasSuffix(m.Name, "Id") || m.Name == "Id" {
			continue
		}
		prefix := strings.TrimSuffix(m.Name, "Id")
		nav, ok := navByName[prefix]
		if !ok || nav.Kind != metadata.KindReference {
			continue
		}
		target := byName[nav.TargetEntity]
		refColumn := "Id"
		if target != nil && target.PrimaryKey != nil && len(target.PrimaryKey.Columns) == 1 {
			refColumn = target.PrimaryKey.Columns[0]
		}
		addFK(m.Name, nav.TargetEntity, refColumn)
	}
}
