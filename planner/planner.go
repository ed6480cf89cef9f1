package planner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/meridian-db/meridian/dialect"
	"github.com/meridian-db/meridian/entity"
)

// PlanOptions carries everything the planner needs beyond the two entity
// snapshots being compared: the full current model (so the PK migration
// path can discover every child FK across the schema), and the live
// database hooks the §4.E.3 refusal checks consult.
type PlanOptions struct {
	AllCurrentEntities []*entity.Definition
	Safety             SafetyContext
	Diagnostics        *Diagnostics
}

// Plan builds the ordered migration script for one entity. When oldEntity
// is nil (or has no columns), the table does not yet exist and the
// dedicated CREATE TABLE path runs instead of the change-by-change diff
// path (§4.E).
func Plan(ctx context.Context, d dialect.Adapter, oldEntity, newEntity *entity.Definition, opts PlanOptions) (*Plan, error) {
	if opts.Safety == nil {
		opts.Safety = NoopSafetyContext{}
	}
	if opts.Diagnostics == nil {
		opts.Diagnostics = NewDiagnostics()
	}
	schema := newEntity.Schema
	if schema == "" {
		schema = "dbo"
	}

	if oldEntity == nil || len(oldEntity.Columns) == 0 {
		return planCreate(d, schema, newEntity)
	}
	return planChange(ctx, d, schema, oldEntity, newEntity, opts)
}

// planCreate implements the new-table path: a single CREATE TABLE script,
// a constraints-and-indexes batch, and a descriptions batch.
func planCreate(d dialect.Adapter, schema string, e *entity.Definition) (*Plan, error) {
	e.MergeForeignKeys()

	var createCols []string
	for _, c := range e.Columns {
		if c.IsNavigation {
			continue
		}
		createCols = append(createCols, "  "+d.FormatColumnDefinition(c))
	}
	if e.PrimaryKey != nil && len(e.PrimaryKey.Columns) > 0 {
		quoted := make([]string, len(e.PrimaryKey.Columns))
		for i, c := range e.PrimaryKey.Columns {
			quoted[i] = d.QuoteIdentifier(c)
		}
		pkName := e.PrimaryKey.Name
		if pkName == "" {
			pkName = "PK_" + e.Name
		}
		createCols = append(createCols, fmt.Sprintf("  CONSTRAINT %s PRIMARY KEY (%s)", d.QuoteIdentifier(pkName), strings.Join(quoted, ", ")))
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s.%s (\n%s\n)", schema, e.Name, strings.Join(createCols, ",\n"))

	createBatch := Batch{
		Name: "create",
		Statements: []Statement{
			{SQL: d.SchemaCreateIfMissing(schema), Description: "Ensure schema " + schema + " exists"},
			{SQL: createSQL, Description: "Create table " + e.Name},
		},
	}

	var constraintStmts []Statement
	for _, c := range e.Constraints {
		if c.Type == entity.ConstraintPrimaryKey || c.Type == entity.ConstraintCheck {
			continue
		}
		constraintStmts = append(constraintStmts, buildAddConstraint(d, schema, e.Name, c))
	}
	for _, ck := range e.CheckConstraints {
		constraintStmts = append(constraintStmts, Statement{
			SQL:         fmt.Sprintf("ALTER TABLE %s.%s ADD CONSTRAINT %s CHECK (%s)", schema, e.Name, d.QuoteIdentifier(ck.Name), ck.Expression),
			Description: fmt.Sprintf("Add CHECK %s", ck.Name),
		})
	}
	for _, idx := range e.Indexes {
		constraintStmts = append(constraintStmts, buildCreateIndex(d, schema, e.Name, idx))
	}

	batches := []Batch{createBatch}
	if len(constraintStmts) > 0 {
		batches = append(batches, Batch{Name: "constraints", Statements: constraintStmts})
	}

	descStmts := BuildDescriptionUpserts(d, schema, &entity.Definition{}, e)
	if len(descStmts) > 0 {
		batches = append(batches, Batch{Name: "descriptions", Statements: descStmts})
	}

	return &Plan{Entity: e.Name, SourceHash: contentHash(e), Batches: batches}, nil
}

// planChange implements the §4.E change-by-change path: PK migration,
// then column additions, then everything else in its mandated order.
func planChange(ctx context.Context, d dialect.Adapter, schema string, oldEntity, newEntity *entity.Definition, opts PlanOptions) (*Plan, error) {
	oldEntity.MergeForeignKeys()
	newEntity.MergeForeignKeys()

	excludedColumns := make(map[string]bool)
	var batches []Batch

	// Batch 1: primary key migration, if the PK column's type changed.
	if oldPKCol, newPKCol, ok := RequiresPrimaryKeyMigration(oldEntity, newEntity); ok {
		checksOnPK := constraintsOnColumn(oldEntity.Constraints, oldPKCol.Name, entity.ConstraintCheck)
		stmts := BuildPrimaryKeyMigration(d, schema, newEntity.Name, oldPKCol, newPKCol, oldEntity.PrimaryKey, opts.AllCurrentEntities, checksOnPK)
		batches = append(batches, Batch{Name: "primary-key-migration", Statements: stmts})
		excludedColumns[strings.ToLower(newPKCol.Name)] = true
	}

	oldCols := columnsByName(oldEntity.Columns)
	newCols := columnsByName(newEntity.Columns)

	// Batch 2: column additions only.
	var addStmts []Statement
	addedColumns := make(map[string]bool)
	for _, nc := range newEntity.Columns {
		if nc.IsNavigation {
			continue
		}
		key := strings.ToLower(nc.Name)
		if excludedColumns[key] {
			continue
		}
		if _, existed := oldCols[key]; existed {
			continue
		}
		addStmts = append(addStmts, Statement{
			SQL:         fmt.Sprintf("ALTER TABLE %s.%s ADD %s", schema, newEntity.Name, d.FormatColumnDefinition(nc)),
			Description: fmt.Sprintf("Add column %s.%s", newEntity.Name, nc.Name),
		})
		addedColumns[nc.Name] = true
	}
	if len(addStmts) > 0 {
		batches = append(batches, Batch{Name: "add-columns", Statements: addStmts})
	}

	// Batch 3: everything else, internally ordered. modifyColumnStatements
	// runs first (but its statements are appended after the drop stage,
	// preserving the mandated order) so its DroppedConstraints set — the
	// DEFAULT/CHECK constraints the safe column migration protocol already
	// dropped as part of its shadow-column swap (§4.E.1) — is known before
	// the general drop stage decides what else needs dropping; otherwise
	// the general stage drops the same constraint a second time and the
	// statement fails at execution.
	var rest []Statement

	modifyStmts, droppedBySafeMigration := modifyColumnStatements(ctx, d, schema, newEntity.Name, oldEntity, newEntity, oldCols, newCols, excludedColumns, opts)

	rest = append(rest, dropIndexStatements(d, schema, newEntity.Name, oldEntity.Indexes, newEntity.Indexes)...)
	rest = append(rest, dropConstraintStatements(d, schema, newEntity.Name, oldEntity.Constraints, newEntity.Constraints, droppedBySafeMigration)...)
	rest = append(rest, dropCheckStatements(d, schema, newEntity.Name, oldEntity.CheckConstraints, newEntity.CheckConstraints, droppedBySafeMigration)...)

	rest = append(rest, modifyStmts...)

	rest = append(rest, addConstraintStatements(d, schema, newEntity.Name, oldEntity.Constraints, newEntity.Constraints)...)
	rest = append(rest, addCheckStatements(d, schema, newEntity.Name, oldEntity.CheckConstraints, newEntity.CheckConstraints)...)
	rest = append(rest, addIndexStatements(d, schema, newEntity.Name, oldEntity.Indexes, newEntity.Indexes, addedColumns, newCols, opts.Diagnostics)...)
	rest = append(rest, addForeignKeyStatements(d, schema, newEntity.Name, oldEntity.Constraints, newEntity.Constraints)...)
	rest = append(rest, BuildDescriptionUpserts(d, schema, oldEntity, newEntity)...)

	if len(rest) > 0 {
		batches = append(batches, Batch{Name: "alter", Statements: rest})
	}

	return &Plan{Entity: newEntity.Name, SourceHash: contentHash(newEntity), Batches: batches}, nil
}

func columnsByName(cols []entity.Column) map[string]entity.Column {
	m := make(map[string]entity.Column, len(cols))
	for _, c := range cols {
		m[strings.ToLower(c.Name)] = c
	}
	return m
}

func constraintsOnColumn(constraints []entity.Constraint, column string, types ...entity.ConstraintType) []entity.Constraint {
	typeSet := make(map[entity.ConstraintType]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}
	var out []entity.Constraint
	for _, c := range constraints {
		if len(typeSet) > 0 && !typeSet[c.Type] {
			continue
		}
		for _, col := range c.Columns {
			if strings.EqualFold(col, column) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

func modifyColumnStatements(
	ctx context.Context,
	d dialect.Adapter,
	schema, table string,
	oldEntity, newEntity *entity.Definition,
	oldCols, newCols map[string]entity.Column,
	excludedColumns map[string]bool,
	opts PlanOptions,
) ([]Statement, map[string]bool) {
	var stmts []Statement
	newCheckExprs := make(map[string]bool)
	for _, ck := range newEntity.CheckConstraints {
		newCheckExprs[entity.NormalizeExpression(ck.Expression)] = true
	}

	// droppedConstraints names every DEFAULT/CHECK constraint the safe
	// column migration protocol (§4.E.1) already dropped as part of its
	// shadow-column swap, so the general drop stage that runs afterward in
	// the emitted statement order doesn't try to drop it a second time.
	droppedConstraints := make(map[string]bool)

	for _, key := range sortedColumnKeys(newCols) {
		if excludedColumns[key] {
			continue
		}
		nc := newCols[key]
		if nc.IsNavigation {
			continue
		}
		oc, existed := oldCols[key]
		if !existed || entity.ColumnsEquivalent(oc, nc) {
			continue
		}

		if identityToggleRefused(ctx, opts.Safety, opts.Diagnostics, schema, table, oc, nc) {
			stmts = append(stmts, Statement{IsSkip: true, Description: fmt.Sprintf("identity toggle on %s.%s refused: table is not empty", table, nc.Name)})
			continue
		}
		if notNullTighteningRefused(ctx, opts.Safety, opts.Diagnostics, schema, table, oc, nc) {
			stmts = append(stmts, Statement{IsSkip: true, Description: fmt.Sprintf("NOT NULL tightening on %s.%s refused: column contains NULLs", table, nc.Name)})
			continue
		}

		if requiresSafeColumnMigration(oc, nc) {
			onOld := constraintsOnColumn(oldEntity.Constraints, oc.Name, entity.ConstraintDefault, entity.ConstraintCheck)
			migration := BuildSafeColumnMigration(d, schema, table, oc, nc, "", onOld, newCheckExprs)
			stmts = append(stmts, migration.Statements...)
			for name := range migration.DroppedConstraints {
				droppedConstraints[strings.ToLower(name)] = true
			}
			continue
		}

		stmts = append(stmts, Statement{
			SQL:         fmt.Sprintf("ALTER TABLE %s.%s ALTER COLUMN %s", schema, table, d.FormatColumnDefinition(nc)),
			Description: fmt.Sprintf("Alter column %s.%s", table, nc.Name),
		})
	}
	return stmts, droppedConstraints
}

// requiresSafeColumnMigration decides between a plain ALTER COLUMN and the
// nine-step shadow-column protocol (§4.E.1): a base type change needs the
// protocol, a pure nullability/default change does not.
func requiresSafeColumnMigration(oc, nc entity.Column) bool {
	return !strings.EqualFold(oc.TypeName, nc.TypeName)
}

func sortedColumnKeys(m map[string]entity.Column) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func dropIndexStatements(d dialect.Adapter, schema, table string, oldIdx, newIdx []entity.Index) []Statement {
	newByName := indexesByName(newIdx)
	var stmts []Statement
	for _, name := range sortedIndexKeys(oldIdx) {
		idx := oldByNameIndex(oldIdx, name)
		if _, ok := newByName[name]; ok && entity.IndexesEquivalent(idx, newByName[name]) {
			continue
		}
		stmts = append(stmts, Statement{
			SQL:         fmt.Sprintf("DROP INDEX %s ON %s.%s", d.QuoteIdentifier(idx.Name), schema, table),
			Description: fmt.Sprintf("Drop index %s", idx.Name),
		})
	}
	return stmts
}

func addIndexStatements(d dialect.Adapter, schema, table string, oldIdx, newIdx []entity.Index, addedColumns map[string]bool, newCols map[string]entity.Column, diag *Diagnostics) []Statement {
	oldByName := indexesByName(oldIdx)
	var stmts []Statement
	for _, name := range sortedIndexKeys(newIdx) {
		idx := oldByNameIndex(newIdx, name)
		if old, ok := oldByName[name]; ok && entity.IndexesEquivalent(old, idx) {
			continue
		}
		if indexReferencesColumnAddedInSamePlan(idx, addedColumns) {
			msg := fmt.Sprintf("index %s skipped: it references a column added in this same plan", idx.Name)
			if diag != nil {
				diag.Warn(schema, table, idx.Name, "IndexOnNewColumn", msg)
			}
			stmts = append(stmts, Statement{IsSkip: true, Description: msg})
			continue
		}
		if width, exceeded := indexWidthExceeded(d, idx, newCols); exceeded {
			stmts = append(stmts, Statement{IsSkip: true, Description: fmt.Sprintf("index %s skipped: key width %d bytes exceeds the 900-byte limit", idx.Name, width)})
			continue
		}
		stmts = append(stmts, buildCreateIndex(d, schema, table, idx))
	}
	return stmts
}

func buildCreateIndex(d dialect.Adapter, schema, table string, idx entity.Index) Statement {
	unique := ""
	if idx.IsUnique {
		unique = "UNIQUE "
	}
	quoted := make([]string, len(idx.Columns))
	for i, c := range idx.Columns {
		quoted[i] = d.QuoteIdentifier(c)
	}
	sql := fmt.Sprintf("CREATE %sINDEX %s ON %s.%s (%s)", unique, d.QuoteIdentifier(idx.Name), schema, table, strings.Join(quoted, ", "))
	if len(idx.IncludeColumns) > 0 {
		inc := make([]string, len(idx.IncludeColumns))
		for i, c := range idx.IncludeColumns {
			inc[i] = d.QuoteIdentifier(c)
		}
		sql += fmt.Sprintf(" INCLUDE (%s)", strings.Join(inc, ", "))
	}
	if idx.FilterExpression != nil && *idx.FilterExpression != "" {
		sql += fmt.Sprintf(" WHERE %s", *idx.FilterExpression)
	}
	return Statement{SQL: sql, Description: fmt.Sprintf("Create index %s", idx.Name)}
}

func indexesByName(idx []entity.Index) map[string]entity.Index {
	m := make(map[string]entity.Index, len(idx))
	for _, i := range idx {
		m[strings.ToLower(i.Name)] = i
	}
	return m
}

func oldByNameIndex(idx []entity.Index, lowerName string) entity.Index {
	for _, i := range idx {
		if strings.ToLower(i.Name) == lowerName {
			return i
		}
	}
	return entity.Index{}
}

func sortedIndexKeys(idx []entity.Index) []string {
	keys := make([]string, 0, len(idx))
	for _, i := range idx {
		keys = append(keys, strings.ToLower(i.Name))
	}
	sort.Strings(keys)
	return keys
}

func dropConstraintStatements(d dialect.Adapter, schema, table string, oldC, newC []entity.Constraint, excludeNames map[string]bool) []Statement {
	newByName := constraintsByName(filterOutPKAndCheck(newC))
	var stmts []Statement
	for _, name := range sortedConstraintKeys(filterOutPKAndCheck(oldC)) {
		if excludeNames[name] {
			continue
		}
		oc := constraintsByName(oldC)[name]
		if nc, ok := newByName[name]; ok && entity.ConstraintsEquivalent(oc, nc) {
			continue
		}
		stmts = append(stmts, Statement{
			SQL:         fmt.Sprintf("ALTER TABLE %s.%s DROP CONSTRAINT %s", schema, table, d.QuoteIdentifier(oc.Name)),
			Description: fmt.Sprintf("Drop %s %s", oc.Type, oc.Name),
		})
	}
	return stmts
}

func addConstraintStatements(d dialect.Adapter, schema, table string, oldC, newC []entity.Constraint) []Statement {
	oldByName := constraintsByName(filterOutPKAndCheck(oldC))
	var stmts []Statement
	for _, name := range sortedConstraintKeys(filterOutPKAndCheck(newC)) {
		nc := constraintsByName(newC)[name]
		if oc, ok := oldByName[name]; ok && entity.ConstraintsEquivalent(oc, nc) {
			continue
		}
		if nc.Type == entity.ConstraintForeignKey {
			continue // foreign keys are added last, after all other constraints
		}
		stmts = append(stmts, buildAddConstraint(d, schema, table, nc))
	}
	return stmts
}

func addForeignKeyStatements(d dialect.Adapter, schema, table string, oldC, newC []entity.Constraint) []Statement {
	oldByName := constraintsByName(filterOutPKAndCheck(oldC))
	var stmts []Statement
	for _, name := range sortedConstraintKeys(filterOutPKAndCheck(newC)) {
		nc := constraintsByName(newC)[name]
		if nc.Type != entity.ConstraintForeignKey {
			continue
		}
		if oc, ok := oldByName[name]; ok && entity.ConstraintsEquivalent(oc, nc) {
			continue
		}
		stmts = append(stmts, buildAddConstraint(d, schema, table, nc))
	}
	return stmts
}

func buildAddConstraint(d dialect.Adapter, schema, table string, c entity.Constraint) Statement {
	quoted := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		quoted[i] = d.QuoteIdentifier(col)
	}
	switch c.Type {
	case entity.ConstraintUnique:
		return Statement{
			SQL:         fmt.Sprintf("ALTER TABLE %s.%s ADD CONSTRAINT %s UNIQUE (%s)", schema, table, d.QuoteIdentifier(c.Name), strings.Join(quoted, ", ")),
			Description: fmt.Sprintf("Add UNIQUE %s", c.Name),
		}
	case entity.ConstraintDefault:
		return Statement{
			SQL:         fmt.Sprintf("ALTER TABLE %s.%s ADD CONSTRAINT %s DEFAULT %s FOR %s", schema, table, d.QuoteIdentifier(c.Name), c.Expression, quoted[0]),
			Description: fmt.Sprintf("Add DEFAULT %s", c.Name),
		}
	case entity.ConstraintForeignKey:
		refQuoted := make([]string, len(c.ReferencedColumns))
		for i, col := range c.ReferencedColumns {
			refQuoted[i] = d.QuoteIdentifier(col)
		}
		refSchema := c.ReferencedSchema
		if refSchema == "" {
			refSchema = schema
		}
		sql := fmt.Sprintf("ALTER TABLE %s.%s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s.%s (%s)",
			schema, table, d.QuoteIdentifier(c.Name), strings.Join(quoted, ", "), refSchema, c.ReferencedTable, strings.Join(refQuoted, ", "))
		if c.OnDelete == entity.Cascade {
			sql += " ON DELETE CASCADE"
		}
		if c.OnUpdate == entity.Cascade {
			sql += " ON UPDATE CASCADE"
		}
		return Statement{SQL: sql, Description: fmt.Sprintf("Add FOREIGN KEY %s", c.Name)}
	default:
		return Statement{
			SQL:         fmt.Sprintf("ALTER TABLE %s.%s ADD CONSTRAINT %s %s (%s)", schema, table, d.QuoteIdentifier(c.Name), c.Type, strings.Join(quoted, ", ")),
			Description: fmt.Sprintf("Add %s %s", c.Type, c.Name),
		}
	}
}

func constraintsByName(constraints []entity.Constraint) map[string]entity.Constraint {
	m := make(map[string]entity.Constraint, len(constraints))
	for _, c := range constraints {
		m[strings.ToLower(c.Name)] = c
	}
	return m
}

func sortedConstraintKeys(constraints []entity.Constraint) []string {
	keys := make([]string, 0, len(constraints))
	for _, c := range constraints {
		keys = append(keys, strings.ToLower(c.Name))
	}
	sort.Strings(keys)
	return keys
}

func filterOutPKAndCheck(constraints []entity.Constraint) []entity.Constraint {
	var out []entity.Constraint
	for _, c := range constraints {
		if c.Type != entity.ConstraintPrimaryKey && c.Type != entity.ConstraintCheck {
			out = append(out, c)
		}
	}
	return out
}

func dropCheckStatements(d dialect.Adapter, schema, table string, oldChecks, newChecks []entity.CheckConstraint, excludeNames map[string]bool) []Statement {
	newByName := checksByName(newChecks)
	var stmts []Statement
	for _, name := range sortedCheckKeys(oldChecks) {
		if excludeNames[name] {
			continue
		}
		oc := checksByName(oldChecks)[name]
		if nc, ok := newByName[name]; ok && entity.NormalizeExpression(oc.Expression) == entity.NormalizeExpression(nc.Expression) {
			continue
		}
		stmts = append(stmts, Statement{
			SQL:         fmt.Sprintf("ALTER TABLE %s.%s DROP CONSTRAINT %s", schema, table, d.QuoteIdentifier(oc.Name)),
			Description: fmt.Sprintf("Drop CHECK %s", oc.Name),
		})
	}
	return stmts
}

func addCheckStatements(d dialect.Adapter, schema, table string, oldChecks, newChecks []entity.CheckConstraint) []Statement {
	oldByName := checksByName(oldChecks)
	var stmts []Statement
	for _, name := range sortedCheckKeys(newChecks) {
		nc := checksByName(newChecks)[name]
		if oc, ok := oldByName[name]; ok && entity.NormalizeExpression(oc.Expression) == entity.NormalizeExpression(nc.Expression) {
			continue
		}
		stmts = append(stmts, Statement{
			SQL:         fmt.Sprintf("ALTER TABLE %s.%s ADD CONSTRAINT %s CHECK (%s)", schema, table, d.QuoteIdentifier(nc.Name), nc.Expression),
			Description: fmt.Sprintf("Add CHECK %s", nc.Name),
		})
	}
	return stmts
}

func checksByName(checks []entity.CheckConstraint) map[string]entity.CheckConstraint {
	m := make(map[string]entity.CheckConstraint, len(checks))
	for _, c := range checks {
		m[strings.ToLower(c.Name)] = c
	}
	return m
}

func sortedCheckKeys(checks []entity.CheckConstraint) []string {
	keys := make([]string, 0, len(checks))
	for _, c := range checks {
		keys = append(keys, strings.ToLower(c.Name))
	}
	sort.Strings(keys)
	return keys
}

// contentHash implements the §9 idempotence key: a SHA-256 over the
// entity's structural content, deliberately excluding any field that
// would vary run-to-run without a real schema change (identifiers,
// timestamps).
func contentHash(e *entity.Definition) string {
	type hashable struct {
		Schema           string
		Name             string
		Columns          []entity.Column
		PrimaryKey       *entity.PrimaryKey
		Constraints      []entity.Constraint
		CheckConstraints []entity.CheckConstraint
		Indexes          []entity.Index
	}
	b, _ := json.Marshal(hashable{
		Schema:           e.Schema,
		Name:             e.Name,
		Columns:          e.Columns,
		PrimaryKey:       e.PrimaryKey,
		Constraints:      e.Constraints,
		CheckConstraints: e.CheckConstraints,
		Indexes:          e.Indexes,
	})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
