// Package entity holds the in-memory representation of a relational schema:
// tables, columns, constraints, indexes, and the logical relationships
// between them. It is pure data — no I/O, no SQL generation — so that the
// model builder, introspector, differ, and planner can all depend on it
// without depending on each other.
package entity

// ForeignKeyAction enumerates the referential actions a foreign key may
// declare for ON DELETE / ON UPDATE.
type ForeignKeyAction string

const (
	NoAction   ForeignKeyAction = "NoAction"
	Cascade    ForeignKeyAction = "Cascade"
	SetNull    ForeignKeyAction = "SetNull"
	SetDefault ForeignKeyAction = "SetDefault"
)

// ConstraintType enumerates the unified constraint kinds a table may carry.
type ConstraintType string

const (
	ConstraintPrimaryKey ConstraintType = "PRIMARY KEY"
	ConstraintForeignKey ConstraintType = "FOREIGN KEY"
	ConstraintUnique     ConstraintType = "UNIQUE"
	ConstraintDefault    ConstraintType = "DEFAULT"
	ConstraintCheck      ConstraintType = "CHECK"
)

// RelationshipType enumerates the logical relationship shapes the model
// builder can infer. Relationships are never emitted as DDL directly; they
// exist to drive FK/shadow-entity inference.
type RelationshipType string

const (
	OneToOne   RelationshipType = "OneToOne"
	OneToMany  RelationshipType = "OneToMany"
	ManyToMany RelationshipType = "ManyToMany"
)

// Column describes a single table column.
type Column struct {
	Name         string
	TypeName     string // canonical SQL type string, including length/precision, e.g. "nvarchar(100)"
	IsNullable   bool
	IsIdentity   bool
	DefaultValue *string
	Description  *string
	// IsNavigation marks a logical member that does not correspond to a
	// physical column and must be excluded from DDL entirely.
	IsNavigation bool
	Precision    *int
	Scale        *int
}

// PrimaryKey describes the ordered primary key of a table.
type PrimaryKey struct {
	Name            string
	Columns         []string
	IsAutoGenerated bool
}

// Constraint is the unified representation of PRIMARY KEY, FOREIGN KEY,
// UNIQUE, DEFAULT, and CHECK constraints.
type Constraint struct {
	Name    string
	Type    ConstraintType
	Columns []string

	// Foreign-key fields.
	ReferencedSchema  string
	ReferencedTable   string
	ReferencedColumns []string
	OnDelete          ForeignKeyAction
	OnUpdate          ForeignKeyAction

	// DEFAULT / CHECK fields.
	Expression string

	Description *string
}

// CheckConstraint is the structured subset of CHECK constraints that the
// model builder can reason about programmatically (as opposed to a raw
// Constraint of type CHECK, which only the planner/safety analyzer need).
type CheckConstraint struct {
	Name               string
	Expression         string
	ReferencedColumns  []string
	Description        *string
}

// Index describes a non-primary-key index.
type Index struct {
	Name             string
	Columns          []string
	IsUnique         bool
	FilterExpression *string
	IncludeColumns   []string
	Description      *string
}

// Relationship is a logical association between two entities. It never
// emits DDL by itself — the FK or shadow join table it implies does.
type Relationship struct {
	SourceEntity         string
	TargetEntity         string
	SourceNavigation     string
	TargetNavigation     string
	Type                 RelationshipType
	JoinEntityName       string // set only for ManyToMany
	SourceToTargetColumn string // set for OneToOne/OneToMany
}

// Definition is a single table: the unit the rest of the system plans,
// diffs, and migrates.
type Definition struct {
	Schema           string // namespace, default "dbo"
	Name             string
	Columns          []Column
	PrimaryKey       *PrimaryKey
	Constraints      []Constraint
	CheckConstraints []CheckConstraint
	Indexes          []Index
	ForeignKeys      []Constraint // denormalized view; merged into Constraints before planning
	Relationships    []Relationship

	// CLRType is a back-reference to the source type descriptor used only
	// during derivation (§4.B); it carries no weight once the definition
	// is built and must never be consulted by diff/planner.
	CLRType string

	// IsShadow marks an auto-generated many-to-many join table.
	IsShadow bool

	// Description is the table-level extended-property text, if any
	// (§4.E.4).
	Description *string
}

// QualifiedName returns "schema.name", defaulting schema to "dbo".
func (d *Definition) QualifiedName() string {
	schema := d.Schema
	if schema == "" {
		schema = "dbo"
	}
	return schema + "." + d.Name
}

// MergeForeignKeys folds the denormalized ForeignKeys list into Constraints,
// deduplicating by (columns, referenced table, referenced columns) so
// neither the constraint-form nor the ForeignKey-form is lost or doubled.
// This must run before diffing or planning (§3 invariant).
func (d *Definition) MergeForeignKeys() {
	seen := make(map[string]bool)
	for _, c := range d.Constraints {
		if c.Type == ConstraintForeignKey {
			seen[fkDedupeKey(c.Columns, c.ReferencedTable, c.ReferencedColumns)] = true
		}
	}
	for _, fk := range d.ForeignKeys {
		key := fkDedupeKey(fk.Columns, fk.ReferencedTable, fk.ReferencedColumns)
		if seen[key] {
			continue
		}
		seen[key] = true
		d.Constraints = append(d.Constraints, fk)
	}
}

func fkDedupeKey(columns []string, refTable string, refColumns []string) string {
	return foldJoin(columns) + "|" + lower(refTable) + "|" + foldJoin(refColumns)
}
