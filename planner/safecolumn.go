package planner

import (
	"fmt"

	"github.com/meridian-db/meridian/dialect"
	"github.com/meridian-db/meridian/entity"
)

// SafeColumnMigration carries the statements the planner's safe column
// migration protocol (§4.E.1) emits for one column, plus the bookkeeping
// the general change stage must consult afterward to avoid redoing work.
type SafeColumnMigration struct {
	Statements         []Statement
	DroppedConstraints map[string]bool // names of DEFAULT/CHECK constraints this protocol already dropped
}

// BuildSafeColumnMigration implements the nine-step protocol of §4.E.1: add
// a shadow column, copy data, drop constraints referencing the old column,
// drop the old column, rename the shadow into place, tighten nullability,
// reapply the new default, and reinstate any CHECK constraints the new
// model doesn't already declare. The whole sequence is expected to run
// inside the single transaction the executor opens for the plan (§4.G); it
// does not itself emit BEGIN/COMMIT.
func BuildSafeColumnMigration(
	d dialect.Adapter,
	schema, table string,
	oldCol, newCol entity.Column,
	copyExpr string,
	constraintsOnOldColumn []entity.Constraint, // DEFAULT/CHECK constraints from the current model referencing oldCol
	newCheckExpressions map[string]bool, // normalized CHECK expressions already present in the new model, entity-wide
) SafeColumnMigration {
	shadowName := newCol.Name + "_New"
	if copyExpr == "" {
		copyExpr = d.QuoteIdentifier(oldCol.Name)
	}

	shadowCol := newCol
	shadowCol.Name = shadowName
	shadowCol.IsNullable = true // step 1: always nullable until data is copied

	dropped := make(map[string]bool)
	var stmts []Statement

	// Step 1: add shadow column.
	stmts = append(stmts, Statement{
		SQL:         fmt.Sprintf("ALTER TABLE %s.%s ADD %s", schema, table, d.FormatColumnDefinition(shadowCol)),
		Description: fmt.Sprintf("Add shadow column %s.%s", table, shadowName),
	})

	// Step 2: copy data.
	stmts = append(stmts, Statement{
		SQL: fmt.Sprintf("UPDATE %s.%s SET %s = %s", schema, table,
			d.QuoteIdentifier(shadowName), copyExpr),
		Description: fmt.Sprintf("Copy %s.%s into shadow column", table, oldCol.Name),
	})

	// Step 3: drop default/check constraints referencing the old column.
	for _, c := range constraintsOnOldColumn {
		if c.Type != entity.ConstraintDefault && c.Type != entity.ConstraintCheck {
			continue
		}
		stmts = append(stmts, Statement{
			SQL:         fmt.Sprintf("ALTER TABLE %s.%s DROP CONSTRAINT %s", schema, table, d.QuoteIdentifier(c.Name)),
			Description: fmt.Sprintf("Drop %s %s referencing %s before column swap", c.Type, c.Name, oldCol.Name),
		})
		dropped[c.Name] = true
	}

	// Step 4: drop the old column.
	stmts = append(stmts, Statement{
		SQL:         fmt.Sprintf("ALTER TABLE %s.%s DROP COLUMN %s", schema, table, d.QuoteIdentifier(oldCol.Name)),
		Description: fmt.Sprintf("Drop old column %s.%s", table, oldCol.Name),
	})

	// Step 5: rename shadow into place.
	stmts = append(stmts, Statement{
		SQL:         fmt.Sprintf("EXEC sp_rename '%s.%s.%s', '%s', 'COLUMN'", schema, table, shadowName, newCol.Name),
		Description: fmt.Sprintf("Rename %s to %s", shadowName, newCol.Name),
	})

	// Step 6: tighten nullability if the target type is NOT NULL.
	if !newCol.IsNullable {
		final := newCol
		stmts = append(stmts, Statement{
			SQL:         fmt.Sprintf("ALTER TABLE %s.%s ALTER COLUMN %s", schema, table, d.FormatColumnDefinition(final)),
			Description: fmt.Sprintf("Set %s.%s NOT NULL", table, newCol.Name),
		})
	}

	// Step 7: reapply the caller-supplied default, if any.
	if newCol.DefaultValue != nil {
		stmts = append(stmts, Statement{
			SQL: fmt.Sprintf("ALTER TABLE %s.%s ADD CONSTRAINT %s DEFAULT %s FOR %s",
				schema, table, d.QuoteIdentifier(d.DefaultConstraintName(table, newCol.Name)), *newCol.DefaultValue, d.QuoteIdentifier(newCol.Name)),
			Description: fmt.Sprintf("Reapply default on %s.%s", table, newCol.Name),
		})
	}

	// Step 8: reinstate any CHECK constraints that existed on the old
	// column and are not already present (by normalized expression) in
	// the new model — a safety net against accidental constraint loss.
	for _, c := range constraintsOnOldColumn {
		if c.Type != entity.ConstraintCheck {
			continue
		}
		if newCheckExpressions[entity.NormalizeExpression(c.Expression)] {
			continue
		}
		stmts = append(stmts, Statement{
			SQL:         fmt.Sprintf("ALTER TABLE %s.%s ADD CONSTRAINT %s CHECK (%s)", schema, table, d.QuoteIdentifier(c.Name), c.Expression),
			Description: fmt.Sprintf("Reinstate CHECK %s dropped during column swap", c.Name),
		})
	}

	// Step 9 (commit/rollback) is the executor's transaction boundary,
	// not a statement this protocol emits.

	return SafeColumnMigration{Statements: stmts, DroppedConstraints: dropped}
}
