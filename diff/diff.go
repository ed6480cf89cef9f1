// Package diff compares a current and a desired entity.Definition and
// produces a typed, severity-ranked list of changes (§4.D).
package diff

import (
	"fmt"
	"strings"

	"github.com/meridian-db/meridian/entity"
)

type Action string

const (
	Added    Action = "Added"
	Modified Action = "Modified"
	Dropped  Action = "Dropped"
)

type Severity string

const (
	Low    Severity = "Low"
	Medium Severity = "Medium"
	High   Severity = "High"
)

type ItemType string

const (
	ColumnItem     ItemType = "column"
	ConstraintItem ItemType = "constraint"
	CheckItem      ItemType = "check"
	IndexItem      ItemType = "index"
	DefaultItem    ItemType = "default"
)

// ImpactItem is one entry in the diff between two entity definitions.
type ImpactItem struct {
	Type         ItemType
	Action       Action
	Table        string
	Name         string
	OriginalType string // set for Modified columns
	NewType      string // set for Modified columns
	Severity     Severity
	Reason       string
}

// Diff compares oldEntity against newEntity and returns the ordered list
// of impacts, keyed case-insensitively by member name within each
// category (§4.D).
func Diff(oldEntity, newEntity *entity.Definition) []ImpactItem {
	var items []ImpactItem
	table := newEntity.Name
	if table == "" {
		table = oldEntity.Name
	}

	items = append(items, diffColumns(table, oldEntity.Columns, newEntity.Columns)...)
	items = append(items, diffConstraints(table, oldEntity.Constraints, newEntity.Constraints)...)
	items = append(items, diffChecks(table, oldEntity.CheckConstraints, newEntity.CheckConstraints)...)
	items = append(items, diffIndexes(table, oldEntity.Indexes, newEntity.Indexes)...)
	return items
}

func byName[T any](items []T, nameOf func(T) string) map[string]T {
	m := make(map[string]T, len(items))
	for _, it := range items {
		m[strings.ToLower(nameOf(it))] = it
	}
	return m
}

func diffColumns(table string, oldCols, newCols []entity.Column) []ImpactItem {
	oldByName := byName(oldCols, func(c entity.Column) string { return c.Name })
	newByName := byName(newCols, func(c entity.Column) string { return c.Name })

	var items []ImpactItem
	for key, nc := range newByName {
		oc, existed := oldByName[key]
		if !existed {
			items = append(items, ImpactItem{
				Type: ColumnItem, Action: Added, Table: table, Name: nc.Name,
				Severity: Low, Reason: fmt.Sprintf("column %s added", nc.Name),
			})
			continue
		}
		if !entity.ColumnsEquivalent(oc, nc) {
			items = append(items, ImpactItem{
				Type: ColumnItem, Action: Modified, Table: table, Name: nc.Name,
				OriginalType: oc.TypeName, NewType: nc.TypeName,
				Severity: columnModifySeverity(oc, nc),
				Reason:   columnModifyReason(oc, nc),
			})
		}
	}
	for key, oc := range oldByName {
		if _, stillPresent := newByName[key]; !stillPresent {
			items = append(items, ImpactItem{
				Type: ColumnItem, Action: Dropped, Table: table, Name: oc.Name,
				Severity: High, Reason: fmt.Sprintf("column %s dropped", oc.Name),
			})
		}
	}
	return items
}

func columnModifySeverity(oc, nc entity.Column) Severity {
	if oc.IsNullable && !nc.IsNullable {
		// Tightening to NOT NULL (§4.D severity rules).
		return High
	}
	return Medium
}

func columnModifyReason(oc, nc entity.Column) string {
	if oc.IsNullable && !nc.IsNullable {
		return fmt.Sprintf("column %s tightened to NOT NULL", nc.Name)
	}
	if oc.TypeName != nc.TypeName {
		return fmt.Sprintf("column %s type changed from %s to %s", nc.Name, oc.TypeName, nc.TypeName)
	}
	return fmt.Sprintf("column %s modified", nc.Name)
}

func diffConstraints(table string, oldC, newC []entity.Constraint) []ImpactItem {
	// Primary keys are handled by the planner's dedicated PK-migration
	// path (§4.E.2), not as a generic constraint diff entry.
	filterPK := func(cs []entity.Constraint) []entity.Constraint {
		var out []entity.Constraint
		for _, c := range cs {
			if c.Type != entity.ConstraintPrimaryKey && c.Type != entity.ConstraintCheck {
				out = append(out, c)
			}
		}
		return out
	}
	oldByName := byName(filterPK(oldC), func(c entity.Constraint) string { return c.Name })
	newByName := byName(filterPK(newC), func(c entity.Constraint) string { return c.Name })

	var items []ImpactItem
	for key, nc := range newByName {
		oc, existed := oldByName[key]
		if !existed {
			items = append(items, ImpactItem{
				Type: ConstraintItem, Action: Added, Table: table, Name: nc.Name,
				Severity: addedConstraintSeverity(nc),
				Reason:   fmt.Sprintf("%s %s added", nc.Type, nc.Name),
			})
			continue
		}
		if !entity.ConstraintsEquivalent(oc, nc) {
			items = append(items, ImpactItem{
				Type: ConstraintItem, Action: Modified, Table: table, Name: nc.Name,
				Severity: Medium, Reason: fmt.Sprintf("%s %s modified", nc.Type, nc.Name),
			})
		}
	}
	for key, oc := range oldByName {
		if _, stillPresent := newByName[key]; !stillPresent {
			items = append(items, ImpactItem{
				Type: ConstraintItem, Action: Dropped, Table: table, Name: oc.Name,
				Severity: droppedConstraintSeverity(oc),
				Reason:   fmt.Sprintf("%s %s dropped", oc.Type, oc.Name),
			})
		}
	}
	return items
}

func addedConstraintSeverity(c entity.Constraint) Severity {
	if c.Type == entity.ConstraintForeignKey {
		return Medium
	}
	return Medium
}

func droppedConstraintSeverity(c entity.Constraint) Severity {
	if c.Type == entity.ConstraintForeignKey {
		return High
	}
	return Medium
}

func diffChecks(table string, oldChecks, newChecks []entity.CheckConstraint) []ImpactItem {
	oldByName := byName(oldChecks, func(c entity.CheckConstraint) string { return c.Name })
	newByName := byName(newChecks, func(c entity.CheckConstraint) string { return c.Name })

	var items []ImpactItem
	for key, nc := range newByName {
		oc, existed := oldByName[key]
		if !existed {
			items = append(items, ImpactItem{
				Type: CheckItem, Action: Added, Table: table, Name: nc.Name,
				Severity: Low, Reason: fmt.Sprintf("check %s added", nc.Name),
			})
			continue
		}
		if entity.NormalizeExpression(oc.Expression) != entity.NormalizeExpression(nc.Expression) {
			items = append(items, ImpactItem{
				Type: CheckItem, Action: Modified, Table: table, Name: nc.Name,
				Severity: Medium, Reason: fmt.Sprintf("check %s expression changed", nc.Name),
			})
		}
	}
	for key, oc := range oldByName {
		if _, stillPresent := newByName[key]; !stillPresent {
			items = append(items, ImpactItem{
				Type: CheckItem, Action: Dropped, Table: table, Name: oc.Name,
				Severity: Medium, Reason: fmt.Sprintf("check %s dropped", oc.Name),
			})
		}
	}
	return items
}

func diffIndexes(table string, oldIdx, newIdx []entity.Index) []ImpactItem {
	oldByName := byName(oldIdx, func(i entity.Index) string { return i.Name })
	newByName := byName(newIdx, func(i entity.Index) string { return i.Name })

	var items []ImpactItem
	for key, ni := range newByName {
		oi, existed := oldByName[key]
		if !existed {
			items = append(items, ImpactItem{
				Type: IndexItem, Action: Added, Table: table, Name: ni.Name,
				Severity: Low, Reason: fmt.Sprintf("index %s added", ni.Name),
			})
			continue
		}
		if !entity.IndexesEquivalent(oi, ni) {
			items = append(items, ImpactItem{
				Type: IndexItem, Action: Modified, Table: table, Name: ni.Name,
				Severity: Medium, Reason: fmt.Sprintf("index %s modified", ni.Name),
			})
		}
	}
	for key, oi := range oldByName {
		if _, stillPresent := newByName[key]; !stillPresent {
			items = append(items, ImpactItem{
				Type: IndexItem, Action: Dropped, Table: table, Name: oi.Name,
				Severity: Medium, Reason: fmt.Sprintf("index %s dropped", oi.Name),
			})
		}
	}
	return items
}
