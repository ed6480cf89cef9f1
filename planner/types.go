// Package planner translates a diff between a current and desired
// entity.Definition into an ordered DDL script of GO-separated batches,
// including the safe column and primary-key migration protocols (§4.E).
package planner

import (
	"context"
	"strings"

	"github.com/meridian-db/meridian/dialect"
)

// Statement is a single SQL statement plus the human-readable description
// the executor's preview/report modes render next to it.
type Statement struct {
	SQL         string
	Description string
	// IsSkip marks a statement that is only a SQL comment recording a
	// refused action (§4.E.3) — it performs no work.
	IsSkip bool
}

// Batch is a contiguous group of statements that ends at the dialect's
// batch terminator.
type Batch struct {
	Name       string
	Statements []Statement
}

// Plan is the full emitted script for one entity: an ordered batch
// sequence plus the content hash used for idempotence (§4.G, §9).
type Plan struct {
	Entity     string
	SourceHash string
	Batches    []Batch
}

// Script renders the plan as GO-separated text, in batch order, exactly
// as the executor will split it back apart (§4.E, §4.G).
func (p *Plan) Script() string {
	var sb strings.Builder
	for i, b := range p.Batches {
		if i > 0 {
			sb.WriteString("\n" + dialect.BatchTerminator + "\n")
		}
		for _, s := range b.Statements {
			if s.IsSkip {
				sb.WriteString("-- SKIPPED: " + s.Description + "\n")
				continue
			}
			sb.WriteString(s.SQL)
			sb.WriteString(";\n")
		}
	}
	return sb.String()
}

// IsEmpty reports whether the plan has no executable statements at all
// (every batch is empty or skip-only) — used for §8.2 idempotence checks.
func (p *Plan) IsEmpty() bool {
	for _, b := range p.Batches {
		for _, s := range b.Statements {
			if !s.IsSkip {
				return false
			}
		}
	}
	return true
}

// SafetyContext lets the planner ask the live database the runtime
// questions it cannot answer from the model alone: whether a table has
// rows, and whether a column currently contains NULLs. A nil SafetyContext
// is treated as "empty table, no NULLs" — appropriate for planning against
// a table the planner knows is brand new, and for unit tests.
type SafetyContext interface {
	TableRowCount(ctx context.Context, schema, table string) (int64, error)
	ColumnHasNulls(ctx context.Context, schema, table, column string) (bool, error)
}

// NoopSafetyContext always reports an empty table and no NULLs.
type NoopSafetyContext struct{}

func (NoopSafetyContext) TableRowCount(context.Context, string, string) (int64, error) { return 0, nil }
func (NoopSafetyContext) ColumnHasNulls(context.Context, string, string, string) (bool, error) {
	return false, nil
}
