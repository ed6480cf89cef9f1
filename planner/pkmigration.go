package planner

import (
	"fmt"
	"strings"

	"github.com/meridian-db/meridian/dialect"
	"github.com/meridian-db/meridian/entity"
)

// childForeignKey is one other table's FK that points at the primary key
// being migrated.
type childForeignKey struct {
	table string
	fk    entity.Constraint
}

// RequiresPrimaryKeyMigration implements the §4.E.2 trigger: the PK column
// name is unchanged but its declared type changed.
func RequiresPrimaryKeyMigration(oldEntity, newEntity *entity.Definition) (oldCol, newCol entity.Column, ok bool) {
	if oldEntity.PrimaryKey == nil || newEntity.PrimaryKey == nil {
		return entity.Column{}, entity.Column{}, false
	}
	if len(oldEntity.PrimaryKey.Columns) != 1 || len(newEntity.PrimaryKey.Columns) != 1 {
		return entity.Column{}, entity.Column{}, false
	}
	if !strings.EqualFold(oldEntity.PrimaryKey.Columns[0], newEntity.PrimaryKey.Columns[0]) {
		return entity.Column{}, entity.Column{}, false
	}
	oldCol, foundOld := findColumn(oldEntity, oldEntity.PrimaryKey.Columns[0])
	newCol, foundNew := findColumn(newEntity, newEntity.PrimaryKey.Columns[0])
	if !foundOld || !foundNew {
		return entity.Column{}, entity.Column{}, false
	}
	if strings.EqualFold(oldCol.TypeName, newCol.TypeName) {
		return entity.Column{}, entity.Column{}, false
	}
	return oldCol, newCol, true
}

func findColumn(def *entity.Definition, name string) (entity.Column, bool) {
	for _, c := range def.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return entity.Column{}, false
}

func findChildForeignKeys(allCurrentEntities []*entity.Definition, table, column string) []childForeignKey {
	var children []childForeignKey
	for _, other := range allCurrentEntities {
		if strings.EqualFold(other.Name, table) {
			continue
		}
		for _, c := range other.Constraints {
			if c.Type != entity.ConstraintForeignKey {
				continue
			}
			if !strings.EqualFold(c.ReferencedTable, table) {
				continue
			}
			for _, rc := range c.ReferencedColumns {
				if strings.EqualFold(rc, column) {
					children = append(children, childForeignKey{table: other.Name, fk: c})
					break
				}
			}
		}
	}
	return children
}

// BuildPrimaryKeyMigration implements §4.E.2: clone the PK column, copy
// values, repoint every referencing FK at the clone, drop the old column
// and PK, rename the clone into place, and recreate the PK. Columns
// touched by this migration must be added to the caller's excludedColumns
// set so downstream change stages do not redo the work.
func BuildPrimaryKeyMigration(
	d dialect.Adapter,
	schema, table string,
	oldCol, newCol entity.Column,
	pk *entity.PrimaryKey,
	allCurrentEntities []*entity.Definition,
	checksOnColumn []entity.Constraint,
) []Statement {
	cloneName := newCol.Name + "_New"
	clone := newCol
	clone.Name = cloneName
	clone.IsNullable = true

	var stmts []Statement

	// Step 1: clone the PK column.
	stmts = append(stmts, Statement{
		SQL:         fmt.Sprintf("ALTER TABLE %s.%s ADD %s", schema, table, d.FormatColumnDefinition(clone)),
		Description: fmt.Sprintf("Clone primary key column %s.%s", table, newCol.Name),
	})

	// Step 2: copy values.
	stmts = append(stmts, Statement{
		SQL:         fmt.Sprintf("UPDATE %s.%s SET %s = %s", schema, table, d.QuoteIdentifier(cloneName), d.QuoteIdentifier(oldCol.Name)),
		Description: fmt.Sprintf("Copy %s.%s into clone", table, oldCol.Name),
	})

	// Step 3: set NOT NULL on the clone.
	notNullClone := clone
	notNullClone.IsNullable = false
	stmts = append(stmts, Statement{
		SQL:         fmt.Sprintf("ALTER TABLE %s.%s ALTER COLUMN %s", schema, table, d.FormatColumnDefinition(notNullClone)),
		Description: fmt.Sprintf("Set clone column %s.%s NOT NULL", table, cloneName),
	})

	// Step 4: repoint every referencing FK at the clone.
	for _, child := range findChildForeignKeys(allCurrentEntities, table, oldCol.Name) {
		childCol := child.fk.Columns[0]
		stmts = append(stmts, Statement{
			SQL:         fmt.Sprintf("ALTER TABLE %s.%s DROP CONSTRAINT %s", schema, child.table, d.QuoteIdentifier(child.fk.Name)),
			Description: fmt.Sprintf("Drop FK %s before repointing at migrated PK", child.fk.Name),
		})
		stmts = append(stmts, Statement{
			SQL: fmt.Sprintf("UPDATE c SET c.%s = p.%s FROM %s.%s c JOIN %s.%s p ON c.%s = p.%s",
				d.QuoteIdentifier(childCol), d.QuoteIdentifier(cloneName),
				schema, child.table, schema, table,
				d.QuoteIdentifier(childCol), d.QuoteIdentifier(oldCol.Name)),
			Description: fmt.Sprintf("Repoint %s.%s to the migrated key's clone value", child.table, childCol),
		})
		stmts = append(stmts, Statement{
			SQL: fmt.Sprintf("ALTER TABLE %s.%s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s.%s (%s)",
				schema, child.table, d.QuoteIdentifier(child.fk.Name), d.QuoteIdentifier(childCol),
				schema, table, d.QuoteIdentifier(newCol.Name)),
			Description: fmt.Sprintf("Re-add FK %s pointing at the migrated key", child.fk.Name),
		})
	}

	// Step 5: drop CHECK constraints referencing the PK column.
	for _, c := range checksOnColumn {
		if c.Type != entity.ConstraintCheck {
			continue
		}
		stmts = append(stmts, Statement{
			SQL:         fmt.Sprintf("ALTER TABLE %s.%s DROP CONSTRAINT %s", schema, table, d.QuoteIdentifier(c.Name)),
			Description: fmt.Sprintf("Drop CHECK %s referencing migrated PK column", c.Name),
		})
	}

	// Step 6: drop the PK, drop the old column, rename the clone, recreate the PK.
	stmts = append(stmts,
		Statement{
			SQL:         fmt.Sprintf("ALTER TABLE %s.%s DROP CONSTRAINT %s", schema, table, d.QuoteIdentifier(pk.Name)),
			Description: fmt.Sprintf("Drop primary key %s", pk.Name),
		},
		Statement{
			SQL:         fmt.Sprintf("ALTER TABLE %s.%s DROP COLUMN %s", schema, table, d.QuoteIdentifier(oldCol.Name)),
			Description: fmt.Sprintf("Drop old primary key column %s.%s", table, oldCol.Name),
		},
		Statement{
			SQL:         fmt.Sprintf("EXEC sp_rename '%s.%s.%s', '%s', 'COLUMN'", schema, table, cloneName, newCol.Name),
			Description: fmt.Sprintf("Rename %s to %s", cloneName, newCol.Name),
		},
		Statement{
			SQL:         fmt.Sprintf("ALTER TABLE %s.%s ADD CONSTRAINT %s PRIMARY KEY (%s)", schema, table, d.QuoteIdentifier(pk.Name), d.QuoteIdentifier(newCol.Name)),
			Description: fmt.Sprintf("Recreate primary key %s", pk.Name),
		},
	)

	return stmts
}
