package introspect

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/meridian-db/meridian/entity"
)

// Exists reports whether the table currently exists. A missing table is
// not an error — the planner treats it as "new table" (§4.C).
func (in *Introspector) Exists(ctx context.Context, schema, table string) (bool, error) {
	row := in.db.QueryRowContext(ctx, tableExistsQuery, schema, table)
	var one int
	err := row.Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking table existence for %s.%s: %w", schema, table, err)
	}
	return true, nil
}

// IntrospectSchema reconstructs the full entity.Definition for (schema,
// table). If the table does not exist it returns an empty-shaped
// definition, per §4.C — callers must not treat that as an error.
func (in *Introspector) IntrospectSchema(ctx context.Context, schema, table string) (*entity.Definition, error) {
	exists, err := in.Exists(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	def := &entity.Definition{Schema: schema, Name: table}
	if !exists {
		return def, nil
	}

	if err := in.loadColumns(ctx, def); err != nil {
		return nil, fmt.Errorf("introspecting columns for %s: %w", def.QualifiedName(), err)
	}
	if err := in.loadPrimaryKey(ctx, def); err != nil {
		return nil, fmt.Errorf("introspecting primary key for %s: %w", def.QualifiedName(), err)
	}
	if err := in.loadUniqueConstraints(ctx, def); err != nil {
		return nil, fmt.Errorf("introspecting unique constraints for %s: %w", def.QualifiedName(), err)
	}
	if err := in.loadIndexes(ctx, def); err != nil {
		return nil, fmt.Errorf("introspecting indexes for %s: %w", def.QualifiedName(), err)
	}
	if err := in.loadForeignKeys(ctx, def); err != nil {
		return nil, fmt.Errorf("introspecting foreign keys for %s: %w", def.QualifiedName(), err)
	}
	if err := in.loadCheckConstraints(ctx, def); err != nil {
		return nil, fmt.Errorf("introspecting check constraints for %s: %w", def.QualifiedName(), err)
	}

	def.MergeForeignKeys()
	return def, nil
}

func (in *Introspector) loadColumns(ctx context.Context, def *entity.Definition) error {
	rows, err := in.query(ctx, columnsQuery, def.Schema, def.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name, dataType                         string
			maxLength                               int
			precision, scale                        int
			isNullable, isIdentity                  bool
			defaultDefinition, defaultName, desc     sql.NullString
		)
		if err := rows.Scan(&name, &dataType, &maxLength, &precision, &scale, &isNullable, &isIdentity, &defaultDefinition, &defaultName, &desc); err != nil {
			return err
		}

		col := entity.Column{
			Name:       name,
			TypeName:   formatTypeName(dataType, maxLength, precision, scale),
			IsNullable: isNullable,
			IsIdentity: isIdentity,
		}
		if defaultDefinition.Valid {
			v := defaultDefinition.String
			col.DefaultValue = &v
		}
		if desc.Valid {
			v := desc.String
			col.Description = &v
		}
		def.Columns = append(def.Columns, col)
	}
	return rows.Err()
}

// formatTypeName reconstructs "<dataType>(<length>)" / "<dataType>(max)"
// for character and binary types, "<dataType>(<precision>,<scale>)" for
// decimal/numeric, and the plain type name otherwise (§4.C).
func formatTypeName(dataType string, maxLength, precision, scale int) string {
	switch dataType {
	case "nvarchar", "nchar":
		if maxLength == -1 {
			return fmt.Sprintf("%s(max)", dataType)
		}
		return fmt.Sprintf("%s(%d)", dataType, maxLength/2)
	case "varchar", "char", "varbinary", "binary":
		if maxLength == -1 {
			return fmt.Sprintf("%s(max)", dataType)
		}
		return fmt.Sprintf("%s(%d)", dataType, maxLength)
	case "decimal", "numeric":
		return fmt.Sprintf("%s(%d,%d)", dataType, precision, scale)
	default:
		return dataType
	}
}

func (in *Introspector) loadPrimaryKey(ctx context.Context, def *entity.Definition) error {
	rows, err := in.query(ctx, primaryKeyQuery, def.Schema, def.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	var name string
	var columns []string
	for rows.Next() {
		var colName string
		var ordinal int
		if err := rows.Scan(&name, &colName, &ordinal); err != nil {
			return err
		}
		columns = append(columns, colName)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(columns) == 0 {
		return nil
	}

	def.PrimaryKey = &entity.PrimaryKey{
		Name:            name,
		Columns:         columns,
		IsAutoGenerated: len(columns) == 1 && columnIsIdentity(def, columns[0]),
	}
	def.Constraints = append(def.Constraints, entity.Constraint{
		Name:    name,
		Type:    entity.ConstraintPrimaryKey,
		Columns: columns,
	})
	return nil
}

func columnIsIdentity(def *entity.Definition, name string) bool {
	for _, c := range def.Columns {
		if c.Name == name {
			return c.IsIdentity
		}
	}
	return false
}

func (in *Introspector) loadUniqueConstraints(ctx context.Context, def *entity.Definition) error {
	rows, err := in.query(ctx, uniqueConstraintsQuery, def.Schema, def.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	grouped := map[string][]string{}
	var order []string
	for rows.Next() {
		var name, column string
		var ordinal int
		if err := rows.Scan(&name, &column, &ordinal); err != nil {
			return err
		}
		if _, ok := grouped[name]; !ok {
			order = append(order, name)
		}
		grouped[name] = append(grouped[name], column)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, name := range order {
		def.Constraints = append(def.Constraints, entity.Constraint{
			Name:    name,
			Type:    entity.ConstraintUnique,
			Columns: grouped[name],
		})
	}
	return nil
}

func (in *Introspector) loadIndexes(ctx context.Context, def *entity.Definition) error {
	rows, err := in.query(ctx, indexesQuery, def.Schema, def.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	type acc struct {
		unique  bool
		filter  sql.NullString
		columns []string
		include []string
	}
	grouped := map[string]*acc{}
	var order []string

	for rows.Next() {
		var name, column string
		var isUnique, isIncluded bool
		var filter sql.NullString
		var ordinal int
		if err := rows.Scan(&name, &isUnique, &filter, &column, &isIncluded, &ordinal); err != nil {
			return err
		}
		a, ok := grouped[name]
		if !ok {
			a = &acc{unique: isUnique, filter: filter}
			grouped[name] = a
			order = append(order, name)
		}
		if isIncluded {
			a.include = append(a.include, column)
		} else {
			a.columns = append(a.columns, column)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, name := range order {
		a := grouped[name]
		idx := entity.Index{
			Name:           name,
			Columns:        a.columns,
			IsUnique:       a.unique,
			IncludeColumns: a.include,
		}
		if a.filter.Valid {
			v := a.filter.String
			idx.FilterExpression = &v
		}
		def.Indexes = append(def.Indexes, idx)
	}
	return nil
}

func (in *Introspector) loadForeignKeys(ctx context.Context, def *entity.Definition) error {
	rows, err := in.query(ctx, foreignKeysQuery, def.Schema, def.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	type acc struct {
		refSchema, refTable string
		onDelete, onUpdate  byte
		columns             []string
		refColumns          []string
	}
	grouped := map[string]*acc{}
	var order []string

	for rows.Next() {
		var name, parentColumn, refSchema, refTable, refColumn string
		var deleteAction, updateAction byte
		var ordinal int
		if err := rows.Scan(&name, &parentColumn, &refSchema, &refTable, &refColumn, &deleteAction, &updateAction, &ordinal); err != nil {
			return err
		}
		a, ok := grouped[name]
		if !ok {
			a = &acc{refSchema: refSchema, refTable: refTable, onDelete: deleteAction, onUpdate: updateAction}
			grouped[name] = a
			order = append(order, name)
		}
		a.columns = append(a.columns, parentColumn)
		a.refColumns = append(a.refColumns, refColumn)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, name := range order {
		a := grouped[name]
		def.Constraints = append(def.Constraints, entity.Constraint{
			Name:              name,
			Type:              entity.ConstraintForeignKey,
			Columns:           a.columns,
			ReferencedSchema:  a.refSchema,
			ReferencedTable:   a.refTable,
			ReferencedColumns: a.refColumns,
			OnDelete:          decodeAction(a.onDelete),
			OnUpdate:          decodeAction(a.onUpdate),
		})
	}
	return nil
}

// decodeAction maps sys.foreign_keys' referential_action codes (0=NO
// ACTION, 1=CASCADE, 2=SET NULL, 3=SET DEFAULT) to entity.ForeignKeyAction.
func decodeAction(code byte) entity.ForeignKeyAction {
	switch code {
	case 1:
		return entity.Cascade
	case 2:
		return entity.SetNull
	case 3:
		return entity.SetDefault
	default:
		return entity.NoAction
	}
}

func (in *Introspector) loadCheckConstraints(ctx context.Context, def *entity.Definition) error {
	rows, err := in.query(ctx, checkConstraintsQuery, def.Schema, def.Name)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, definition string
		if err := rows.Scan(&name, &definition); err != nil {
			return err
		}
		def.Constraints = append(def.Constraints, entity.Constraint{
			Name:       name,
			Type:       entity.ConstraintCheck,
			Expression: definition,
		})
		def.CheckConstraints = append(def.CheckConstraints, entity.CheckConstraint{
			Name:       name,
			Expression: definition,
		})
	}
	return rows.Err()
}
