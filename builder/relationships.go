package builder

import (
	"strings"

	"github.com/meridian-db/meridian/entity"
	"github.com/meridian-db/meridian/metadata"
)

// inferCollectionRelationships implements §4.B.4: reciprocal sequence
// navigations become a ManyToMany relationship backed by an auto-generated
// shadow join entity (canonical owner = lexicographically smaller entity
// name); one-sided sequence navigations become OneToMany, adding the FK
// column on the target if the naming convention didn't already produce it.
// It returns the shadow entities that must be added to the model.
func inferCollectionRelationships(byName map[string]*entity.Definition, descByName map[string]metadata.Descriptor) []*entity.Definition {
	var shadows []*entity.Definition
	processedPairs := make(map[string]bool)

	for _, a := range sortedKeys(byName) {
		descA := descByName[a]
		for _, m := range descA.Members {
			if m.Kind != metadata.KindCollection || m.TargetEntity == "" {
				continue
			}
			b := m.TargetEntity
			if _, ok := byName[b]; !ok {
				continue
			}

			if hasReciprocalCollection(descByName[b], a) {
				pairKey := pairKey(a, b)
				if processedPairs[pairKey] {
					continue
				}
				processedPairs[pairKey] = true

				owner, other := canonicalOrder(a, b)
				shadow := buildShadowJoinEntity(byName[owner], byName[other])
				shadows = append(shadows, shadow)

				rel := entity.Relationship{
					SourceEntity:   owner,
					TargetEntity:   other,
					Type:           entity.ManyToMany,
					JoinEntityName: shadow.Name,
				}
				byName[owner].Relationships = append(byName[owner].Relationships, rel)
				byName[other].Relationships = append(byName[other].Relationships, rel)
				continue
			}

			// One-sided: OneToMany from a (one) to b (many).
			ensureForeignKeyColumn(byName[b], a, byName[a])
			byName[a].Relationships = append(byName[a].Relationships, entity.Relationship{
				SourceEntity:         a,
				TargetEntity:         b,
				Type:                 entity.OneToMany,
				SourceToTargetColumn: a + "Id",
			})
		}
	}
	return shadows
}

func hasReciprocalCollection(d metadata.Descriptor, target string) bool {
	for _, m := range d.Members {
		if m.Kind == metadata.KindCollection && m.TargetEntity == target {
			return true
		}
	}
	return false
}

func pairKey(a, b string) string {
	owner, other := canonicalOrder(a, b)
	return owner + "|" + other
}

// canonicalOrder returns (a, b) reordered so the lexicographically smaller
// name comes first, matching the "smaller entity is the canonical owner"
// rule used for shadow join tables and for determinism (§8.3).
func canonicalOrder(a, b string) (string, string) {
	if strings.Compare(a, b) <= 0 {
		return a, b
	}
	return b, a
}

func pkColumnAndType(def *entity.Definition) (string, string) {
	if def.PrimaryKey == nil || len(def.PrimaryKey.Columns) != 1 {
		return "Id", "int"
	}
	col := def.PrimaryKey.Columns[0]
	for _, c := range def.Columns {
		if equalFold(c.Name, col) {
			return col, c.TypeName
		}
	}
	return col, "int"
}

// buildShadowJoinEntity creates the auto-generated many-to-many join table
// named "<A><B>" (owner first), with a composite PK and FKs to both
// owners (§4.B.4).
func buildShadowJoinEntity(owner, other *entity.Definition) *entity.Definition {
	ownerCol, ownerType := pkColumnAndType(owner)
	otherCol, otherType := pkColumnAndType(other)

	ownerFKCol := owner.Name + ownerCol
	otherFKCol := other.Name + otherCol
	name := owner.Name + other.Name

	shadow := &entity.Definition{
		Schema:   "dbo",
		Name:     name,
		IsShadow: true,
		Columns: []entity.Column{
			{Name: ownerFKCol, TypeName: ownerType, IsNullable: false},
			{Name: otherFKCol, TypeName: otherType, IsNullable: false},
		},
		PrimaryKey: &entity.PrimaryKey{
			Name:            "PK_" + name,
			Columns:         []string{ownerFKCol, otherFKCol},
			IsAutoGenerated: false,
		},
	}
	shadow.Constraints = append(shadow.Constraints, entity.Constraint{
		Name:    shadow.PrimaryKey.Name,
		Type:    entity.ConstraintPrimaryKey,
		Columns: shadow.PrimaryKey.Columns,
	})
	shadow.ForeignKeys = append(shadow.ForeignKeys,
		entity.Constraint{
			Name:              "FK_" + name + "_" + ownerFKCol,
			Type:              entity.ConstraintForeignKey,
			Columns:           []string{ownerFKCol},
			ReferencedSchema:  "dbo",
			ReferencedTable:   owner.Name,
			ReferencedColumns: []string{ownerCol},
			OnDelete:          entity.Cascade,
			OnUpdate:          entity.NoAction,
		},
		entity.Constraint{
			Name:              "FK_" + name + "_" + otherFKCol,
			Type:              entity.ConstraintForeignKey,
			Columns:           []string{otherFKCol},
			ReferencedSchema:  "dbo",
			ReferencedTable:   other.Name,
			ReferencedColumns: []string{otherCol},
			OnDelete:          entity.Cascade,
			OnUpdate:          entity.NoAction,
		},
	)
	return shadow
}

// ensureForeignKeyColumn adds the "<owner>Id" FK column to target if the
// naming-convention pass didn't already produce it.
func ensureForeignKeyColumn(target *entity.Definition, ownerName string, owner *entity.Definition) {
	col := ownerName + "Id"
	for _, c := range target.Columns {
		if equalFold(c.Name, col) {
			return
		}
	}
	_, ownerType := pkColumnAndType(owner)
	target.Columns = append(target.Columns, entity.Column{Name: col, TypeName: ownerType, IsNullable: true})

	ownerCol, _ := pkColumnAndType(owner)
	target.ForeignKeys = append(target.ForeignKeys, entity.Constraint{
		Name:              "FK_" + target.Name + "_" + col,
		Type:              entity.ConstraintForeignKey,
		Columns:           []string{col},
		ReferencedSchema:  "dbo",
		ReferencedTable:   owner.Name,
		ReferencedColumns: []string{ownerCol},
		OnDelete:          entity.Cascade,
		OnUpdate:          entity.NoAction,
	})
}

// inferOneToOne implements §4.B.5: a FK whose column is the table's PK or
// carries a single-column UNIQUE, paired with mutual single-reference
// navigations, implies OneToOne. When uniqueness is only inferred from the
// navigations, synthesize the backing UNIQUE constraint.
func inferOneToOne(def *entity.Definition, d metadata.Descriptor, byName map[string]*entity.Definition) {
	refMembers := make(map[string]metadata.Member)
	for _, m := range d.Members {
		if m.Kind == metadata.KindReference {
			refMembers[m.Name] = m
		}
	}

	for _, fk := range def.ForeignKeys {
		if len(fk.Columns) != 1 {
			continue
		}
		col := fk.Columns[0]
		isPK := def.PrimaryKey != nil && len(def.PrimaryKey.Columns) == 1 && equalFold(def.PrimaryKey.Columns[0], col)
		hasUnique := hasUniqueConstraint(def, col)
		target := byName[fk.ReferencedTable]
		if target == nil || !hasMutualSingleReference(d, descriptorTargetName(refMembers, col, fk.ReferencedTable)) {
			continue
		}

		if !isPK && !hasUnique {
			// Uniqueness was only inferable from the navigations: synthesize
			// the backing UNIQUE constraint so it is no longer implicit.
			def.Constraints = append(def.Constraints, entity.Constraint{
				Name:    "UQ_" + def.Name + "_" + col,
				Type:    entity.ConstraintUnique,
				Columns: []string{col},
			})
		}

		def.Relationships = append(def.Relationships, entity.Relationship{
			SourceEntity:         def.Name,
			TargetEntity:         fk.ReferencedTable,
			Type:                 entity.OneToOne,
			SourceToTargetColumn: col,
		})
	}
}

func descriptorTargetName(refMembers map[string]metadata.Member, col, fallback string) string {
	prefix := strings.TrimSuffix(col, "Id")
	if m, ok := refMembers[prefix]; ok {
		return m.TargetEntity
	}
	return fallback
}

func hasMutualSingleReference(d metadata.Descriptor, targetEntity string) bool {
	for _, m := range d.Members {
		if m.Kind == metadata.KindReference && m.TargetEntity == targetEntity {
			return true
		}
	}
	return false
}

func hasUniqueConstraint(def *entity.Definition, col string) bool {
	for _, c := range def.Constraints {
		if c.Type == entity.ConstraintUnique && len(c.Columns) == 1 && equalFold(c.Columns[0], col) {
			return true
		}
	}
	return false
}
