package executor

import (
	"fmt"

	"github.com/meridian-db/meridian/dialect"
	"github.com/meridian-db/meridian/diff"
)

// RollbackPlan is the inverse-statement plan §4.G's rollback synthesis
// produces from an impact list, plus the items that cannot be
// synthesized back because they were destructive (dropped).
type RollbackPlan struct {
	Statements   []string
	Irreversible []string
}

// BuildRollback synthesizes the inverse of an impact list: an added
// column is dropped, a modified column with a recorded original type is
// altered back, an added constraint or index is dropped. Dropped items
// have no synthesizable inverse and are reported separately.
func BuildRollback(d dialect.Adapter, schema string, impacts []diff.ImpactItem) RollbackPlan {
	var plan RollbackPlan
	for _, item := range impacts {
		switch item.Action {
		case diff.Added:
			switch item.Type {
			case diff.ColumnItem:
				plan.Statements = append(plan.Statements,
					fmt.Sprintf("ALTER TABLE %s.%s DROP COLUMN %s", schema, item.Table, d.QuoteIdentifier(item.Name)))
			case diff.ConstraintItem:
				plan.Statements = append(plan.Statements,
					fmt.Sprintf("ALTER TABLE %s.%s DROP CONSTRAINT %s", schema, item.Table, d.QuoteIdentifier(item.Name)))
			case diff.CheckItem:
				plan.Statements = append(plan.Statements,
					fmt.Sprintf("ALTER TABLE %s.%s DROP CONSTRAINT %s", schema, item.Table, d.QuoteIdentifier(item.Name)))
			case diff.IndexItem:
				plan.Statements = append(plan.Statements,
					fmt.Sprintf("DROP INDEX %s ON %s.%s", d.QuoteIdentifier(item.Name), schema, item.Table))
			}
		case diff.Modified:
			if item.Type == diff.ColumnItem && item.OriginalType != "" {
				plan.Statements = append(plan.Statements,
					fmt.Sprintf("ALTER TABLE %s.%s ALTER COLUMN %s %s", schema, item.Table, d.QuoteIdentifier(item.Name), item.OriginalType))
			} else {
				plan.Irreversible = append(plan.Irreversible, fmt.Sprintf("%s %s modified on %s: no recorded original form to restore", item.Type, item.Name, item.Table))
			}
		case diff.Dropped:
			plan.Irreversible = append(plan.Irreversible, fmt.Sprintf("%s %s dropped from %s: cannot be synthesized back", item.Type, item.Name, item.Table))
		}
	}
	return plan
}
