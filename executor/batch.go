package executor

import (
	"strings"
)

// SplitBatches implements §4.G's batch split rule: break the script on
// any line matching exactly "GO" (case-insensitive, surrounded only by
// whitespace), ignoring occurrences inside a block comment or an open
// string literal. This mirrors sqlcmd/SSMS behavior closely enough for
// scripts this planner emits itself, which never straddles a GO line
// with an unterminated string.
func SplitBatches(script string) []string {
	var batches []string
	var current strings.Builder

	inBlockComment := false
	inString := false

	lines := strings.Split(script, "\n")
	for _, line := range lines {
		wasInString := inString
		wasInBlockComment := inBlockComment
		scanLine(line, &inBlockComment, &inString)
		trimmed := strings.TrimSpace(line)

		if !wasInBlockComment && !wasInString && strings.EqualFold(trimmed, "GO") {
			batches = append(batches, strings.TrimRight(current.String(), "\n"))
			current.Reset()
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
	}

	if rest := strings.TrimSpace(current.String()); rest != "" {
		batches = append(batches, strings.TrimRight(current.String(), "\n"))
	}

	return batches
}

// scanLine walks one line character by character, updating the running
// block-comment/string-literal state so the caller can tell whether a
// bare "GO" on this line is really a batch terminator or text embedded
// in a comment or string.
func scanLine(line string, inBlockComment, inString *bool) {
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case *inBlockComment:
			if c == '*' && i+1 < len(runes) && runes[i+1] == '/' {
				*inBlockComment = false
				i++
			}
		case *inString:
			if c == '\'' {
				if i+1 < len(runes) && runes[i+1] == '\'' {
					i++ // escaped quote
				} else {
					*inString = false
				}
			}
		case c == '-' && i+1 < len(runes) && runes[i+1] == '-':
			return // rest of line is a line comment
		case c == '/' && i+1 < len(runes) && runes[i+1] == '*':
			*inBlockComment = true
			i++
		case c == '\'':
			*inString = true
		}
	}
}
