// Package introspect reconstructs an entity.Definition by querying a live
// SQL Server catalog, mirroring exactly the shape the model builder
// produces so the two can be diffed directly (§4.C).
package introspect

import (
	"context"
	"database/sql"
)

// Introspector reads catalog metadata for a single (schema, table) pair.
// It performs no writes.
type Introspector struct {
	db *sql.DB
}

func New(db *sql.DB) *Introspector {
	return &Introspector{db: db}
}

// columnsQuery reads name, data type, character max length, nullability,
// default text, and identity flag in one shot.
const columnsQuery = `
SELECT
	c.name,
	t.name AS data_type,
	c.max_length,
	c.precision,
	c.scale,
	c.is_nullable,
	c.is_identity,
	dc.definition AS default_definition,
	dc.name AS default_name,
	CAST(ep.value AS nvarchar(max)) AS description
FROM sys.columns c
JOIN sys.tables tbl ON tbl.object_id = c.object_id
JOIN sys.schemas s ON s.schema_id = tbl.schema_id
JOIN sys.types t ON t.user_type_id = c.user_type_id
LEFT JOIN sys.default_constraints dc ON dc.object_id = c.default_object_id
LEFT JOIN sys.extended_properties ep
	ON ep.major_id = c.object_id AND ep.minor_id = c.column_id AND ep.name = 'MS_Description'
WHERE s.name = @p1 AND tbl.name = @p2
ORDER BY c.column_id`

const indexesQuery = `
SELECT i.name, i.is_unique, i.filter_definition, c.name AS column_name, ic.is_included_column, ic.key_ordinal
FROM sys.indexes i
JOIN sys.tables tbl ON tbl.object_id = i.object_id
JOIN sys.schemas s ON s.schema_id = tbl.schema_id
JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
WHERE s.name = @p1 AND tbl.name = @p2 AND i.is_primary_key = 0 AND i.name IS NOT NULL
ORDER BY i.name, ic.key_ordinal`

const primaryKeyQuery = `
SELECT i.name, c.name AS column_name, ic.key_ordinal
FROM sys.indexes i
JOIN sys.tables tbl ON tbl.object_id = i.object_id
JOIN sys.schemas s ON s.schema_id = tbl.schema_id
JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
WHERE s.name = @p1 AND tbl.name = @p2 AND i.is_primary_key = 1
ORDER BY ic.key_ordinal`

const uniqueConstraintsQuery = `
SELECT i.name, c.name AS column_name, ic.key_ordinal
FROM sys.indexes i
JOIN sys.tables tbl ON tbl.object_id = i.object_id
JOIN sys.schemas s ON s.schema_id = tbl.schema_id
JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
WHERE s.name = @p1 AND tbl.name = @p2 AND i.is_unique_constraint = 1
ORDER BY i.name, ic.key_ordinal`

const foreignKeysQuery = `
SELECT
	fk.name,
	pc.name AS parent_column,
	rs.name AS ref_schema,
	rt.name AS ref_table,
	rc.name AS ref_column,
	fk.delete_referential_action,
	fk.update_referential_action,
	fkc.constraint_column_id
FROM sys.foreign_keys fk
JOIN sys.tables tbl ON tbl.object_id = fk.parent_object_id
JOIN sys.schemas s ON s.schema_id = tbl.schema_id
JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
JOIN sys.columns pc ON pc.object_id = fkc.parent_object_id AND pc.column_id = fkc.parent_column_id
JOIN sys.columns rc ON rc.object_id = fkc.referenced_object_id AND rc.column_id = fkc.referenced_column_id
JOIN sys.tables rt ON rt.object_id = fkc.referenced_object_id
JOIN sys.schemas rs ON rs.schema_id = rt.schema_id
WHERE s.name = @p1 AND tbl.name = @p2
ORDER BY fk.name, fkc.constraint_column_id`

const checkConstraintsQuery = `
SELECT cc.name, cc.definition
FROM sys.check_constraints cc
JOIN sys.tables tbl ON tbl.object_id = cc.parent_object_id
JOIN sys.schemas s ON s.schema_id = tbl.schema_id
WHERE s.name = @p1 AND tbl.name = @p2`

const tableExistsQuery = `
SELECT 1 FROM sys.tables tbl
JOIN sys.schemas s ON s.schema_id = tbl.schema_id
WHERE s.name = @p1 AND tbl.name = @p2`

// query is a small indirection so the higher-level load* methods share one
// execution path.
func (in *Introspector) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return in.db.QueryContext(ctx, query, args...)
}
