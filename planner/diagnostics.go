package planner

import "fmt"

// Diagnostics replaces the one-shot global mutable warning set the source
// design calls out in §9 with an explicit context threaded through the
// planner. Each refusal (§4.E.3) is recorded once per (schema, table,
// column, kind) key even if the same plan re-evaluates the same column
// multiple times.
type Diagnostics struct {
	warned   map[string]bool
	Messages []string
}

// NewDiagnostics returns an empty Diagnostics context. Callers create one
// per planning pass and pass it by pointer so the dedup table is shared
// across every entity in that pass.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{warned: make(map[string]bool)}
}

// Warn records a message once per (schema, table, column, kind); repeat
// calls with the same key are no-ops.
func (d *Diagnostics) Warn(schema, table, column, kind, message string) {
	key := fmt.Sprintf("%s.%s.%s.%s", schema, table, column, kind)
	if d.warned[key] {
		return
	}
	d.warned[key] = true
	d.Messages = append(d.Messages, message)
}
