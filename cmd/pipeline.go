package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/meridian-db/meridian/dialect"
	"github.com/meridian-db/meridian/entity"
	"github.com/meridian-db/meridian/introspect"
	"github.com/meridian-db/meridian/planner"
)

// liveSafetyContext answers the planner's §4.E.3 refusal checks against a
// real database connection.
type liveSafetyContext struct {
	db *sql.DB
	d  dialect.Adapter
}

func (c liveSafetyContext) TableRowCount(ctx context.Context, schema, table string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT_BIG(1) FROM %s.%s", c.d.QuoteIdentifier(schema), c.d.QuoteIdentifier(table))
	row := c.db.QueryRowContext(ctx, query)
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows in %s.%s: %w", schema, table, err)
	}
	return count, nil
}

func (c liveSafetyContext) ColumnHasNulls(ctx context.Context, schema, table, column string) (bool, error) {
	query := fmt.Sprintf("SELECT TOP 1 1 FROM %s.%s WHERE %s IS NULL", c.d.QuoteIdentifier(schema), c.d.QuoteIdentifier(table), c.d.QuoteIdentifier(column))
	row := c.db.QueryRowContext(ctx, query)
	var found int
	err := row.Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check nulls in %s.%s.%s: %w", schema, table, column, err)
	}
	return true, nil
}

// planEntity introspects def's current live shape (nil if the table
// doesn't exist yet) and builds the migration plan that would take it to
// def's desired shape.
func planEntity(ctx context.Context, db *sql.DB, d dialect.Adapter, schemaName string, def *entity.Definition, allCurrent []*entity.Definition) (oldEntity *entity.Definition, plan *planner.Plan, err error) {
	in := introspect.New(db)
	exists, err := in.Exists(ctx, schemaName, def.Name)
	if err != nil {
		return nil, nil, fmt.Errorf("check existence of %s.%s: %w", schemaName, def.Name, err)
	}
	if exists {
		oldEntity, err = in.IntrospectSchema(ctx, schemaName, def.Name)
		if err != nil {
			return nil, nil, fmt.Errorf("introspect %s.%s: %w", schemaName, def.Name, err)
		}
	}

	desired := *def
	desired.Schema = schemaName
	plan, err = planner.Plan(ctx, d, oldEntity, &desired, planner.PlanOptions{
		AllCurrentEntities: allCurrent,
		Safety:             liveSafetyContext{db: db, d: d},
	})
	if err != nil {
		return oldEntity, nil, fmt.Errorf("plan %s.%s: %w", schemaName, def.Name, err)
	}
	return oldEntity, plan, nil
}
