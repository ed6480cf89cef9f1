// Package dialect isolates the SQL-Server-specific idioms — identifier
// quoting, column DDL, the GO batch terminator, extended-property sprocs — behind one
// interface, per the design note in §9 of the source specification: the
// diff, safety, and ordering logic elsewhere stays dialect-agnostic and
// only ever talks to a dialect.Adapter.
package dialect

import "github.com/meridian-db/meridian/entity"

// BatchTerminator is the line that separates DDL batches in an emitted
// script (§4.E, §7 glossary).
const BatchTerminator = "GO"

// Adapter is the seam between dialect-agnostic planning logic and the one
// concrete SQL dialect a deployment targets.
type Adapter interface {
	// Name identifies the dialect, e.g. "mssql".
	Name() string

	// QuoteIdentifier brackets/quotes a bare identifier for safe
	// interpolation into generated DDL.
	QuoteIdentifier(name string) string

	// FormatColumnDefinition renders "<name> <type> [IDENTITY(1,1)] NULL|NOT NULL [DEFAULT ...]".
	FormatColumnDefinition(c entity.Column) string

	// IndexKeyWidth returns the byte width SQL Server would charge a
	// column toward the 900-byte index key limit (§4.E.3).
	IndexKeyWidth(c entity.Column) int

	// ExtendedPropertyUpsert renders the "add if absent else update"
	// idiom used for table/column/constraint descriptions (§4.E.4).
	ExtendedPropertyUpsert(level0, level1Type, level1Name, level2Type, level2Name, value string) []string

	// SchemaCreateIfMissing renders the idempotent "create schema if it
	// doesn't exist" statement (§4.G).
	SchemaCreateIfMissing(schema string) string

	// DefaultConstraintName synthesizes a name for an unnamed DEFAULT
	// constraint, matching catalog-introspected naming.
	DefaultConstraintName(table, column string) string
}
