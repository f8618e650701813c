package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nickyhof/TupleDB/db"
)

type scriptSummary struct {
	succeeded int
	failed    int
}

// runScript executes the statements of a file one by one and reports each.
// A failing statement does not stop the script.
func runScript(engine *db.Engine, filename string, out io.Writer) (scriptSummary, error) {
	var summary scriptSummary

	data, err := os.ReadFile(filename)
	if err != nil {
		return summary, fmt.Errorf("failed to read file: %w", err)
	}

	for i, stmt := range splitStatements(string(data)) {
		result, err := engine.Execute(stmt)
		if err != nil {
			fmt.Fprintf(out, "%s[%d] ✗ %s%s\n", ErrorColor, i+1, truncate(stmt, 50), ResetColor)
			fmt.Fprintf(out, "      Error: %v\n", err)
			summary.failed++
			continue
		}

		summary.succeeded++
		switch r := result.(type) {
		case db.CommitResult:
			var details []string
			if r.RecordsWritten > 0 {
				details = append(details, fmt.Sprintf("%d written", r.RecordsWritten))
			}
			if r.RecordsDeleted > 0 {
				details = append(details, fmt.Sprintf("%d deleted", r.RecordsDeleted))
			}
			detailStr := ""
			if len(details) > 0 {
				detailStr = " (" + strings.Join(details, ", ") + ")"
			}
			fmt.Fprintf(out, "%s[%d] ✓ %s%s%s\n", SuccessColor, i+1, truncate(stmt, 50), detailStr, ResetColor)
		case db.QueryResult:
			fmt.Fprintf(out, "%s[%d] ✓ %s (%d rows)%s\n", SuccessColor, i+1, truncate(stmt, 50), r.RecordsRead, ResetColor)
		default:
			fmt.Fprintf(out, "%s[%d] ✓ %s%s\n", SuccessColor, i+1, truncate(stmt, 50), ResetColor)
		}
	}

	fmt.Fprintf(out, "\n%s✓ Script complete: %d succeeded, %d failed%s\n",
		SuccessColor, summary.succeeded, summary.failed, ResetColor)

	return summary, nil
}

// splitStatements splits a script into statements on semicolons outside
// quoted strings. Lines starting with -- are comments.
func splitStatements(content string) []string {
	var statements []string
	var current strings.Builder
	inString := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if ch == '\'' {
			inString = !inString
		}

		if !inString && ch == '-' && i+1 < len(content) && content[i+1] == '-' {
			for i < len(content) && content[i] != '\n' {
				i++
			}
			current.WriteByte(' ')
			continue
		}

		if !inString && ch == ';' {
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
