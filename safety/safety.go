// Package safety classifies the statements an emitted migration plan
// contains into safe and unsafe by keyword scan, then reconciles false
// positives where a dropped and a re-added item cancel out (§4.F).
package safety

import (
	"strings"

	"github.com/meridian-db/meridian/planner"
)

// MigrationSafetyResult is the analyzer's verdict on one plan.
type MigrationSafetyResult struct {
	IsSafe         bool
	SafeCommands   []string
	UnsafeCommands []string
	Reasons        []string
}

var unsafeKeywords = []string{
	"DROP COLUMN",
	"DROP CONSTRAINT",
	"ALTER COLUMN",
	"DROP INDEX",
}

// Analyze scans every non-skip statement across a plan's batches (§4.F).
// excludedColumns names the columns participating in the plan's active PK
// migration — CHECK drops against them are exempt from the unsafe list,
// mirroring the exemption the PK migration protocol itself requires.
func Analyze(p *planner.Plan, excludedColumns map[string]bool) MigrationSafetyResult {
	var safe, unsafe, reasons []string
	var droppedChecks, addedChecks []string
	var droppedIndexes, addedIndexes []string

	for _, batch := range p.Batches {
		for _, stmt := range batch.Statements {
			if stmt.IsSkip {
				continue
			}
			upper := strings.ToUpper(stmt.SQL)

			isUnsafe := false
			for _, kw := range unsafeKeywords {
				if strings.Contains(upper, kw) {
					isUnsafe = true
					break
				}
			}

			if strings.Contains(upper, "DROP CONSTRAINT") && checkDropExempt(stmt.SQL, stmt.Description, excludedColumns) {
				isUnsafe = false
			}
			if strings.Contains(upper, "ADD CONSTRAINT") && strings.Contains(stmt.Description, "CHECK") {
				isUnsafe = false
				if name, ok := nameAfterPrefix(stmt.Description, "Add CHECK "); ok {
					addedChecks = append(addedChecks, name)
				}
			}
			if strings.Contains(upper, "DROP CONSTRAINT") && strings.Contains(stmt.Description, "CHECK") {
				if name, ok := nameAfterPrefix(stmt.Description, "Drop CHECK "); ok {
					droppedChecks = append(droppedChecks, name)
				}
			}
			if strings.HasPrefix(upper, "DROP INDEX") {
				if name, ok := nameAfterPrefix(stmt.Description, "Drop index "); ok {
					droppedIndexes = append(droppedIndexes, name)
				}
			}
			if strings.HasPrefix(upper, "CREATE INDEX") || strings.HasPrefix(upper, "CREATE UNIQUE INDEX") {
				if name, ok := nameAfterPrefix(stmt.Description, "Create index "); ok {
					addedIndexes = append(addedIndexes, name)
				}
			}

			if isUnsafe {
				unsafe = append(unsafe, stmt.SQL)
				reasons = append(reasons, stmt.Description)
			} else {
				safe = append(safe, stmt.SQL)
			}
		}
	}

	unsafe, reasons = reconcileFalsePositives(unsafe, reasons, droppedChecks, addedChecks, droppedIndexes, addedIndexes)

	return MigrationSafetyResult{
		IsSafe:         len(unsafe) == 0,
		SafeCommands:   safe,
		UnsafeCommands: unsafe,
		Reasons:        reasons,
	}
}

// checkDropExempt is a conservative exemption check: a CHECK-constraint
// drop issued against a column that is part of the plan's primary key
// migration is expected and never counts as unsafe (§4.E.2 step 5).
func checkDropExempt(sql, description string, excludedColumns map[string]bool) bool {
	if !strings.Contains(description, "CHECK") {
		return false
	}
	upper := strings.ToUpper(sql)
	for col := range excludedColumns {
		if strings.Contains(upper, strings.ToUpper(col)) {
			return true
		}
	}
	return false
}

// reconcileFalsePositives implements §4.F's second pass: a dropped index
// or CHECK that was also re-added under the same name within the same
// plan is not a net destructive change, so its drop statement is removed
// from the unsafe list.
func reconcileFalsePositives(unsafe, reasons, droppedChecks, addedChecks, droppedIndexes, addedIndexes []string) ([]string, []string) {
	reconciled := make(map[string]bool)
	for _, name := range droppedChecks {
		if containsName(addedChecks, name) {
			reconciled["Drop CHECK "+name] = true
		}
	}
	for _, name := range droppedIndexes {
		if containsName(addedIndexes, name) {
			reconciled["Drop index "+name] = true
		}
	}
	if len(reconciled) == 0 {
		return unsafe, reasons
	}

	var filteredUnsafe, filteredReasons []string
	for i, r := range reasons {
		if reconciled[r] {
			continue
		}
		filteredUnsafe = append(filteredUnsafe, unsafe[i])
		filteredReasons = append(filteredReasons, r)
	}
	return filteredUnsafe, filteredReasons
}

func containsName(names []string, target string) bool {
	for _, n := range names {
		if n == target {
			return true
		}
	}
	return false
}

func nameAfterPrefix(description, prefix string) (string, bool) {
	if !strings.HasPrefix(description, prefix) {
		return "", false
	}
	return strings.TrimPrefix(description, prefix), true
}
