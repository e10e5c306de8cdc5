package llm

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/analyst/pkg/core"
	"github.com/leapstack-labs/analyst/pkg/dialect"
)

// systemPrompt pins the model's role. It is static so implementations can
// cache it server-side.
const systemPrompt = "You are a careful data analyst. You write SQL for exactly one dialect " +
	"at a time and you answer only with the JSON object the task demands, with no prose " +
	"before or after it."

// buildGeneratePrompt renders a first-generation prompt: the question
// grounded in the discovered schema and the dialect's own idioms.
func buildGeneratePrompt(req GenerateRequest) string {
	var b strings.Builder
	upper := strings.ToUpper(string(req.Caps.Name))

	fmt.Fprintf(&b, "Write only %s SQL. Do not use functions from other dialects.\n\n", upper)
	fmt.Fprintf(&b, "QUESTION: %s\n\n", req.Question)

	writeConstraints(&b, req)

	b.WriteString("DATABASE SCHEMA:\n")
	writeSchema(&b, req.Schema)

	fmt.Fprintf(&b, "\n%s CAPABILITIES:\n", upper)
	writeCapabilityHints(&b, req.Caps)

	if len(req.Caps.Examples) > 0 {
		fmt.Fprintf(&b, "\nEXAMPLES OF VALID %s SYNTAX:\n", upper)
		for _, ex := range req.Caps.Examples {
			fmt.Fprintf(&b, "  %s\n", ex)
		}
	}

	fmt.Fprintf(&b, `
REQUIREMENTS:
- Write only valid %s SQL
- The query must be a single read-only statement
- Include a row limit appropriate for this dialect
- Return results that directly answer the question

OUTPUT FORMAT:
Return a JSON object with exactly this structure:
{"sql": "<your SQL query>", "notes": "<brief explanation of approach>"}
`, upper)
	return b.String()
}

// buildRefinePrompt renders a revision prompt: the failed SQL plus the
// accumulated diagnosis hints, most recent last.
func buildRefinePrompt(req GenerateRequest) string {
	var b strings.Builder
	upper := strings.ToUpper(string(req.Caps.Name))

	fmt.Fprintf(&b, "You are fixing a %s SQL query that did not produce a usable answer.\n\n", upper)
	fmt.Fprintf(&b, "ORIGINAL QUESTION: %s\n\n", req.Question)
	fmt.Fprintf(&b, "PREVIOUS SQL:\n%s\n\n", req.PreviousSQL)

	if len(req.Hints) > 0 {
		b.WriteString("WHAT WENT WRONG (oldest first):\n")
		for i, h := range req.Hints {
			fmt.Fprintf(&b, "%d. %s\n", i+1, h)
		}
		b.WriteString("\n")
	}

	writeConstraints(&b, req)

	b.WriteString("DATABASE SCHEMA:\n")
	writeSchema(&b, req.Schema)

	fmt.Fprintf(&b, "\n%s CAPABILITIES:\n", upper)
	writeCapabilityHints(&b, req.Caps)

	fmt.Fprintf(&b, `
Produce a corrected %s SQL query that fixes the most recent problem while
still answering the original question.

OUTPUT FORMAT:
Return a JSON object with exactly this structure:
{"sql": "<corrected SQL query>", "what_changed": "<brief explanation of the fix>"}
`, upper)
	return b.String()
}

// buildSummarizePrompt asks for the final natural-language answer.
func buildSummarizePrompt(req SummarizeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "QUESTION: %s\n\nSQL USED:\n%s\n\n", req.Question, req.SQL)
	fmt.Fprintf(&b, "RESULT: %d rows, %d columns (%s)\n",
		req.Summary.Rows, req.Summary.Columns, strings.Join(req.Summary.ColumnName, ", "))
	if len(req.Summary.Sample) > 0 {
		b.WriteString("SAMPLE ROWS:\n")
		for _, row := range req.Summary.Sample {
			fmt.Fprintf(&b, "  %v\n", row)
		}
	}
	if req.Quality != nil {
		fmt.Fprintf(&b, "\nQUALITY: score %.2f, passed=%t\n", req.Quality.Score, req.Quality.Passed)
		for _, n := range req.Quality.Notes {
			fmt.Fprintf(&b, "- %s\n", n)
		}
	}
	b.WriteString(`
Write a short plain-language answer to the question based on this result.
State numbers precisely. If the quality check did not pass, say the answer
is best-effort and name the caveat. Reply with the answer text only.
`)
	return b.String()
}

func writeConstraints(b *strings.Builder, req GenerateRequest) {
	var lines []string
	if req.TimeWindow != "" {
		lines = append(lines, fmt.Sprintf("- Restrict to the time window: %s", req.TimeWindow))
	}
	if req.Grain != "" {
		lines = append(lines, fmt.Sprintf("- Aggregate at grain: %s", req.Grain))
	}
	for k, v := range req.Filters {
		if k == core.FilterCompareWindow {
			continue
		}
		lines = append(lines, fmt.Sprintf("- Filter: %s = %v", k, v))
	}
	if len(lines) == 0 {
		return
	}
	b.WriteString("CONSTRAINTS:\n")
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
}

func writeSchema(b *strings.Builder, schema *core.SchemaProfile) {
	if schema == nil || len(schema.Tables) == 0 {
		b.WriteString("Schema information not available.\n")
		return
	}
	for _, t := range schema.Tables {
		name := t.Name
		if t.Schema != "" {
			name = t.Schema + "." + t.Name
		}
		fmt.Fprintf(b, "Table: %s (%d rows)\n", name, t.RowCount)
		for _, c := range t.Columns {
			null := " NOT NULL"
			if c.Nullable {
				null = " NULL"
			}
			pk := ""
			if c.PrimaryKey {
				pk = " PRIMARY KEY"
			}
			fmt.Fprintf(b, "  %s %s%s%s\n", c.Name, c.Type, null, pk)
		}
		if len(t.SampleRows) > 0 {
			b.WriteString("Sample data:\n")
			for _, row := range t.SampleRows {
				fmt.Fprintf(b, "  %v\n", row)
			}
		}
		b.WriteByte('\n')
	}
}

func writeCapabilityHints(b *strings.Builder, caps *dialect.Capabilities) {
	if caps.LimitIdiom != "" {
		fmt.Fprintf(b, "- Use `%s` for limiting results\n", caps.LimitIdiom)
	}
	if caps.DateTruncIdiom != "" {
		fmt.Fprintf(b, "- Use `%s` for date grouping\n", caps.DateTruncIdiom)
	}
	if caps.TimezoneIdiom != "" {
		fmt.Fprintf(b, "- Use `%s` for timezone conversion\n", caps.TimezoneIdiom)
	}
	if caps.StringAggIdiom != "" {
		fmt.Fprintf(b, "- Use `%s` for string aggregation\n", caps.StringAggIdiom)
	}
	if caps.Ilike {
		b.WriteString("- Use `ILIKE` for case-insensitive text search\n")
	} else {
		b.WriteString("- Use `LOWER(col) LIKE LOWER(pattern)` for case-insensitive search\n")
	}
	if caps.QualifyClause {
		b.WriteString("- Use the `QUALIFY` clause for window function filtering\n")
	}
	if q := caps.Identifiers.Quote; q != "" && q != `"` {
		fmt.Fprintf(b, "- Quote identifiers with %s when needed\n", q)
	}
}
