package executor

import (
	"fmt"
	"html"
	"strings"

	"github.com/meridian-db/meridian/diff"
	"github.com/meridian-db/meridian/planner"
	"github.com/meridian-db/meridian/safety"
)

// renderImpactReport builds the ModeImpactAnalysis artifact: the diff
// summary plus the safety verdict, in the requested format.
func renderImpactReport(plan *planner.Plan, impacts []diff.ImpactItem, sr safety.MigrationSafetyResult, format string) string {
	if strings.EqualFold(format, "html") {
		return renderImpactReportHTML(plan, impacts, sr)
	}
	return renderImpactReportMarkdown(plan, impacts, sr)
}

func renderImpactReportMarkdown(plan *planner.Plan, impacts []diff.ImpactItem, sr safety.MigrationSafetyResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Migration impact: %s\n\n", plan.Entity)

	if sr.IsSafe {
		sb.WriteString("**Safety:** all statements classified safe\n\n")
	} else {
		fmt.Fprintf(&sb, "**Safety:** %d unsafe statement(s) require review\n\n", len(sr.UnsafeCommands))
	}

	if len(impacts) == 0 {
		sb.WriteString("No changes.\n")
		return sb.String()
	}

	sb.WriteString("| Type | Action | Name | Severity | Reason |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, item := range impacts {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n", item.Type, item.Action, item.Name, item.Severity, item.Reason)
	}

	if !sr.IsSafe {
		sb.WriteString("\n## Unsafe statements\n\n")
		for i, cmd := range sr.UnsafeCommands {
			reason := ""
			if i < len(sr.Reasons) {
				reason = sr.Reasons[i]
			}
			fmt.Fprintf(&sb, "- `%s` — %s\n", cmd, reason)
		}
	}

	return sb.String()
}

func renderImpactReportHTML(plan *planner.Plan, impacts []diff.ImpactItem, sr safety.MigrationSafetyResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "<h1>Migration impact: %s</h1>\n", html.EscapeString(plan.Entity))

	if sr.IsSafe {
		sb.WriteString("<p><strong>Safety:</strong> all statements classified safe</p>\n")
	} else {
		fmt.Fprintf(&sb, "<p><strong>Safety:</strong> %d unsafe statement(s) require review</p>\n", len(sr.UnsafeCommands))
	}

	if len(impacts) == 0 {
		sb.WriteString("<p>No changes.</p>\n")
		return sb.String()
	}

	sb.WriteString("<table>\n<tr><th>Type</th><th>Action</th><th>Name</th><th>Severity</th><th>Reason</th></tr>\n")
	for _, item := range impacts {
		fmt.Fprintf(&sb, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
			html.EscapeString(string(item.Type)), html.EscapeString(string(item.Action)), html.EscapeString(item.Name),
			html.EscapeString(string(item.Severity)), html.EscapeString(item.Reason))
	}
	sb.WriteString("</table>\n")

	if !sr.IsSafe {
		sb.WriteString("<h2>Unsafe statements</h2>\n<ul>\n")
		for i, cmd := range sr.UnsafeCommands {
			reason := ""
			if i < len(sr.Reasons) {
				reason = sr.Reasons[i]
			}
			fmt.Fprintf(&sb, "<li><code>%s</code> &mdash; %s</li>\n", html.EscapeString(cmd), html.EscapeString(reason))
		}
		sb.WriteString("</ul>\n")
	}

	return sb.String()
}
