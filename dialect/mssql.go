package dialect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/meridian-db/meridian/entity"
)

// MSSQL is the one concrete dialect adapter this module ships, grounded in
// the SQL Server catalog surface named throughout the source
// specification (sys.indexes, sp_addextendedproperty, the GO batch
// terminator, nvarchar/uniqueidentifier types).
type MSSQL struct{}

func NewMSSQL() *MSSQL { return &MSSQL{} }

func (MSSQL) Name() string { return "mssql" }

func (MSSQL) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (a MSSQL) FormatColumnDefinition(c entity.Column) string {
	var sb strings.Builder
	sb.WriteString(a.QuoteIdentifier(c.Name))
	sb.WriteString(" ")
	sb.WriteString(c.TypeName)
	if c.IsIdentity {
		sb.WriteString(" IDENTITY(1,1)")
	}
	if c.IsNullable {
		sb.WriteString(" NULL")
	} else {
		sb.WriteString(" NOT NULL")
	}
	if c.DefaultValue != nil {
		sb.WriteString(fmt.Sprintf(" DEFAULT %s", *c.DefaultValue))
	}
	return sb.String()
}

// IndexKeyWidth implements the byte-accounting rule of §4.E.3: nvarchar(N)
// counts as 2N, varchar(N) as N, max is treated as 900 (the whole budget,
// so any further key column pushes the index over it), and fixed-width
// types use a fixed per-type width (17 for decimal/numeric, 8 for the
// date/time types and any type not listed).
func (MSSQL) IndexKeyWidth(c entity.Column) int {
	base := strings.ToLower(baseType(c.TypeName))
	length := declaredLength(c.TypeName)

	switch base {
	case "nvarchar", "nchar":
		if length == "max" {
			return 900
		}
		n, err := strconv.Atoi(length)
		if err != nil {
			return 900
		}
		return 2 * n
	case "varchar", "char":
		if length == "max" {
			return 900
		}
		n, err := strconv.Atoi(length)
		if err != nil {
			return 900
		}
		return n
	case "uniqueidentifier":
		return 16
	case "int":
		return 4
	case "bigint":
		return 8
	case "smallint":
		return 2
	case "tinyint":
		return 1
	case "bit":
		return 1
	case "datetime", "datetime2", "smalldatetime", "date", "time":
		return 8
	case "decimal", "numeric":
		return 17
	case "money":
		return 8
	case "smallmoney":
		return 4
	case "float":
		return 8
	case "real":
		return 4
	default:
		return 8
	}
}

func baseType(typeName string) string {
	if i := strings.IndexByte(typeName, '('); i >= 0 {
		return strings.TrimSpace(typeName[:i])
	}
	return strings.TrimSpace(typeName)
}

func declaredLength(typeName string) string {
	start := strings.IndexByte(typeName, '(')
	end := strings.IndexByte(typeName, ')')
	if start < 0 || end < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(strings.ToLower(typeName[start+1 : end]))
}

// ExtendedPropertyUpsert renders the idempotent sp_addextendedproperty /
// sp_updateextendedproperty idiom named in §4.E.4: attempt the add, and
// fall back to an update when the property already exists.
func (MSSQL) ExtendedPropertyUpsert(level0, level1Type, level1Name, level2Type, level2Name, value string) []string {
	var args strings.Builder
	args.WriteString(fmt.Sprintf("@name=N'MS_Description', @value=N'%s'", sqlEscape(value)))
	args.WriteString(fmt.Sprintf(", @level0type=N'SCHEMA', @level0name=N'%s'", sqlEscape(level0)))
	if level1Type != "" {
		args.WriteString(fmt.Sprintf(", @level1type=N'%s', @level1name=N'%s'", level1Type, sqlEscape(level1Name)))
	}
	if level2Type != "" {
		args.WriteString(fmt.Sprintf(", @level2type=N'%s', @level2name=N'%s'", level2Type, sqlEscape(level2Name)))
	}
	argStr := args.String()

	existsPredicate := fmt.Sprintf(
		"fn_listextendedproperty('MS_Description', 'SCHEMA', N'%s', %s, %s, %s, %s)",
		sqlEscape(level0),
		quotedOrDefault(level1Type), quotedOrDefault(level1Name),
		quotedOrDefault(level2Type), quotedOrDefault(level2Name),
	)

	return []string{
		fmt.Sprintf("IF NOT EXISTS (SELECT 1 FROM ::%s)", existsPredicate),
		fmt.Sprintf("  EXEC sp_addextendedproperty %s", argStr),
		"ELSE",
		fmt.Sprintf("  EXEC sp_updateextendedproperty %s", argStr),
	}
}

func quotedOrDefault(s string) string {
	if s == "" {
		return "NULL"
	}
	return fmt.Sprintf("N'%s'", sqlEscape(s))
}

func sqlEscape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func (MSSQL) SchemaCreateIfMissing(schema string) string {
	return fmt.Sprintf(
		"IF NOT EXISTS (SELECT 1 FROM sys.schemas WHERE name = N'%s') EXEC('CREATE SCHEMA %s')",
		sqlEscape(schema), schema,
	)
}

func (MSSQL) DefaultConstraintName(table, column string) string {
	return fmt.Sprintf("DF_%s_%s", table, column)
}
