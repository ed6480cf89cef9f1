package builder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/meridian-db/meridian/entity"
	"github.com/meridian-db/meridian/metadata"
)

var textTypePrefixes = []string{"nvarchar", "varchar", "char", "nchar", "text", "ntext"}

func isTextType(typeName string) bool {
	base := strings.ToLower(baseTypeName(typeName))
	for _, p := range textTypePrefixes {
		if base == p {
			return true
		}
	}
	return false
}

func baseTypeName(typeName string) string {
	if i := strings.IndexByte(typeName, '('); i >= 0 {
		return strings.TrimSpace(typeName[:i])
	}
	return strings.TrimSpace(typeName)
}

// inferChecks implements §4.B.6: declarative attributes translate into
// CHECK constraints named "CK_<entity>_<column>_<kind>".
func inferChecks(def *entity.Definition, d metadata.Descriptor, trace Trace) {
	for _, m := range d.Members {
		if m.Kind != metadata.KindScalar {
			continue
		}

		if m.Has(metadata.AnnotationRequired) {
			if isTextType(m.SQLTypeName) {
				addCheck(def, m.Name, "required", fmt.Sprintf("LEN([%s])>0", m.Name))
			} else {
				addCheck(def, m.Name, "required", fmt.Sprintf("[%s] IS NOT NULL", m.Name))
			}
		}

		if ann, ok := m.Find(metadata.AnnotationMaxLength); ok {
			addCheck(def, m.Name, "maxlength", fmt.Sprintf("LEN([%s])<=%s", m.Name, ann.Args["length"]))
		}

		if ann, ok := m.Find(metadata.AnnotationRange); ok {
			addCheck(def, m.Name, "range", fmt.Sprintf("([%s]>=%s AND [%s]<=%s)", m.Name, ann.Args["min"], m.Name, ann.Args["max"]))
		}

		if ann, ok := m.Find(metadata.AnnotationRegex); ok {
			if pattern, ok := regexToLike(ann.Args["pattern"]); ok {
				addCheck(def, m.Name, "pattern", fmt.Sprintf("[%s] LIKE '%s'", m.Name, pattern))
			} else {
				trace(def.Name, fmt.Sprintf("column %s: regular expression %q could not be translated to a CHECK pattern, skipped", m.Name, ann.Args["pattern"]))
			}
		}
	}
}

func addCheck(def *entity.Definition, column, kind, expression string) {
	name := fmt.Sprintf("CK_%s_%s_%s", def.Name, column, kind)
	def.CheckConstraints = append(def.CheckConstraints, entity.CheckConstraint{
		Name:              name,
		Expression:        expression,
		ReferencedColumns: []string{column},
	})
	def.Constraints = append(def.Constraints, entity.Constraint{
		Name:       name,
		Type:       entity.ConstraintCheck,
		Columns:    []string{column},
		Expression: expression,
	})
}

// simpleAnchoredRegex matches a pattern of the form ^literal$ made only of
// literal characters, '.', and escaped metacharacters — the only shape the
// source design names as convertible to LIKE (§4.B.6).
var simpleAnchoredRegex = regexp.MustCompile(`^\^([^*+?()|\[\]{}^$]*)\$$`)

// regexToLike translates a simple anchored regular expression into a SQL
// LIKE pattern: '.' becomes '_', a literal '.' (escaped as "\.") is kept
// literal, and no wildcard metacharacters are permitted. Anything else is
// reported as unconvertible.
func regexToLike(pattern string) (string, bool) {
	m := simpleAnchoredRegex.FindStringSubmatch(pattern)
	if m == nil {
		return "", false
	}
	body := m[1]

	var out strings.Builder
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\\':
			if i+1 < len(body) && body[i+1] == '.' {
				out.WriteByte('.')
				i++
				continue
			}
			return "", false
		case '.':
			out.WriteByte('_')
		case '%', '_', '[', ']':
			// LIKE metacharacters present in the literal text can't be
			// expressed without further escaping support; bail out.
			return "", false
		default:
			out.WriteByte(body[i])
		}
	}
	return out.String(), true
}
