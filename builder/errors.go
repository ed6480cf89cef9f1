package builder

import "strings"

// SchemaCycleError is returned when the foreign-key graph between entities
// contains a cycle; topological sort cannot proceed and no plan can be
// produced downstream (§4.B.7, §7).
type SchemaCycleError struct {
	Entities []string
}

func (e *SchemaCycleError) Error() string {
	return "schema cycle detected among entities: " + strings.Join(e.Entities, " -> ")
}
