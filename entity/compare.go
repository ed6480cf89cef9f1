package entity

import (
	"regexp"
	"sort"
	"strings"
)

func lower(s string) string { return strings.ToLower(s) }

// foldJoin lowercases and joins a column list so it can be used as a
// multiset-equality key regardless of declared order.
func foldJoin(columns []string) string {
	folded := make([]string, len(columns))
	for i, c := range columns {
		folded[i] = lower(c)
	}
	sort.Strings(folded)
	return strings.Join(folded, ",")
}

// baseType returns the portion of a type name before its opening
// parenthesis, e.g. "nvarchar(100)" -> "nvarchar".
func baseType(typeName string) string {
	if i := strings.IndexByte(typeName, '('); i >= 0 {
		return strings.TrimSpace(typeName[:i])
	}
	return strings.TrimSpace(typeName)
}

// declaredLength returns the text between the parentheses of a type name,
// e.g. "nvarchar(100)" -> "100", "nvarchar(max)" -> "max". Returns "" when
// the type has no length/precision clause.
func declaredLength(typeName string) string {
	start := strings.IndexByte(typeName, '(')
	end := strings.IndexByte(typeName, ')')
	if start < 0 || end < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(strings.ToLower(typeName[start+1 : end]))
}

// ColumnsEquivalent implements the §4.A column comparison semantics.
func ColumnsEquivalent(a, b Column) bool {
	if !strings.EqualFold(baseType(a.TypeName), baseType(b.TypeName)) {
		return false
	}
	if a.IsIdentity != b.IsIdentity {
		return false
	}
	if a.IsNullable != b.IsNullable {
		return false
	}
	if !equalDefaults(a.DefaultValue, b.DefaultValue) {
		return false
	}
	// "max" is distinct from any finite declared length.
	if declaredLength(a.TypeName) != declaredLength(b.TypeName) {
		return false
	}
	return true
}

func equalDefaults(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return NormalizeExpression(*a) == NormalizeExpression(*b)
}

// ConstraintsEquivalent implements the §4.A constraint comparison
// semantics: same type, same column multiset, and type-specific extras.
func ConstraintsEquivalent(a, b Constraint) bool {
	if a.Type != b.Type {
		return false
	}
	if foldJoin(a.Columns) != foldJoin(b.Columns) {
		return false
	}
	switch a.Type {
	case ConstraintForeignKey:
		if !strings.EqualFold(a.ReferencedTable, b.ReferencedTable) {
			return false
		}
		if foldJoin(a.ReferencedColumns) != foldJoin(b.ReferencedColumns) {
			return false
		}
	case ConstraintDefault, ConstraintCheck:
		if NormalizeExpression(a.Expression) != NormalizeExpression(b.Expression) {
			return false
		}
	}
	return true
}

// IndexesEquivalent implements the §4.A index comparison semantics. Column
// order matters for indexes (unlike constraints), so it is compared
// positionally rather than as a multiset.
func IndexesEquivalent(a, b Index) bool {
	if len(a.Columns) != len(b.Columns) {
		return false
	}
	for i := range a.Columns {
		if !strings.EqualFold(a.Columns[i], b.Columns[i]) {
			return false
		}
	}
	if a.IsUnique != b.IsUnique {
		return false
	}
	if !equalFilter(a.FilterExpression, b.FilterExpression) {
		return false
	}
	if foldJoin(a.IncludeColumns) != foldJoin(b.IncludeColumns) {
		return false
	}
	return true
}

func equalFilter(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return NormalizeExpression(*a) == NormalizeExpression(*b)
}

var (
	whitespaceRe   = regexp.MustCompile(`\s+`)
	betweenRe      = regexp.MustCompile(`\(\[([A-Za-z0-9_]+)\]>=\(?(-?[0-9.]+)\)?AND\[([A-Za-z0-9_]+)\]<=\(?(-?[0-9.]+)\)?\)`)
	numericLitRe   = regexp.MustCompile(`\((-?[0-9]+(?:\.[0-9]+)?)\)`)
	isNullRe       = regexp.MustCompile(`ISNULL\(`)
	isNotNullRe    = regexp.MustCompile(`ISNOTNULL\(`)
)

// NormalizeExpression implements the §4.A expression normalization rules
// so that two syntactically different but semantically identical CHECK or
// DEFAULT expressions compare equal. It is deliberately conservative: it
// only rewrites the forms spec.md names explicitly.
func NormalizeExpression(expr string) string {
	s := strings.ToUpper(expr)
	s = whitespaceRe.ReplaceAllString(s, "")

	// Rewrite "([c]>=X AND [c]<=Y)" to "[c] BETWEEN X AND Y" when c is
	// identical on both sides. This must run on the whitespace-stripped
	// form before the outer/numeric parens it matches against are
	// stripped, or it never sees its own input.
	s = rewriteBetween(s)

	// Strip one layer of enclosing parentheses if symmetric.
	s = stripOuterParens(s)

	// Canonicalize numeric literals wrapped in a single layer of
	// parens, e.g. "(0)" -> "0".
	s = numericLitRe.ReplaceAllString(s, "$1")

	s = strings.ReplaceAll(s, "=TRUE", "=1")
	s = strings.ReplaceAll(s, "=FALSE", "=0")

	s = isNullRe.ReplaceAllString(s, "IS NULL(")
	s = isNotNullRe.ReplaceAllString(s, "IS NOT NULL(")

	return s
}

func stripOuterParens(s string) string {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return s
	}
	depth := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(s)-1 {
				return s // the closing paren at i isn't the outermost one's match
			}
		}
	}
	return s[1 : len(s)-1]
}

func rewriteBetween(s string) string {
	return betweenRe.ReplaceAllStringFunc(s, func(m string) string {
		sub := betweenRe.FindStringSubmatch(m)
		if sub == nil {
			return m
		}
		colLo, lo, colHi, hi := sub[1], sub[2], sub[3], sub[4]
		if !strings.EqualFold(colLo, colHi) {
			return m
		}
		return "[" + colLo + "]BETWEEN" + lo + "AND" + hi
	})
}
