package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/meridian-db/meridian/dialect"
	"github.com/meridian-db/meridian/entity"
)

// refusalCheck evaluates the §4.E.3 safety refusals. A true return means
// the change must be skipped; the Diagnostics context records the one-shot
// warning and the caller appends a skip Statement instead of executing.

func identityToggleRefused(ctx context.Context, safety SafetyContext, diag *Diagnostics, schema, table string, old, new entity.Column) bool {
	if old.IsIdentity == new.IsIdentity {
		return false
	}
	count, err := safety.TableRowCount(ctx, schema, table)
	if err != nil || count == 0 {
		return false
	}
	diag.Warn(schema, table, new.Name, "Identity",
		fmt.Sprintf("skipped identity toggle on %s.%s.%s: table has %d rows", schema, table, new.Name, count))
	return true
}

func notNullTighteningRefused(ctx context.Context, safety SafetyContext, diag *Diagnostics, schema, table string, old, new entity.Column) bool {
	if !(old.IsNullable && !new.IsNullable) {
		return false
	}
	hasNulls, err := safety.ColumnHasNulls(ctx, schema, table, old.Name)
	if err != nil || !hasNulls {
		return false
	}
	diag.Warn(schema, table, new.Name, "NotNullTightening",
		fmt.Sprintf("skipped NOT NULL tightening on %s.%s.%s: column contains NULLs", schema, table, new.Name))
	return true
}

// indexWidthExceeded implements the 900-byte index key rule (§4.E.3,
// §8.7).
func indexWidthExceeded(d dialect.Adapter, idx entity.Index, columnsByName map[string]entity.Column) (int, bool) {
	total := 0
	for _, colName := range idx.Columns {
		col, ok := columnsByName[strings.ToLower(colName)]
		if !ok {
			continue
		}
		total += d.IndexKeyWidth(col)
	}
	return total, total > 900
}

// indexReferencesColumnAddedInSamePlan implements the "defer/skip" rule
// for an index over a column that is only being added in this same plan:
// addIndexStatements emits a skip comment for such an index instead of
// creating it, so a later plan (run once the column exists) creates it.
func indexReferencesColumnAddedInSamePlan(idx entity.Index, addedColumns map[string]bool) bool {
	for _, c := range idx.Columns {
		if addedColumns[c] {
			return true
		}
	}
	return false
}
