// Package dialect provides the SQL dialect capability registry.
//
// Capabilities constrain what SQL the generator may legally emit for a
// target database and let the diagnosis classifier recognize errors caused
// by unsupported features. Entries are registered at init time and are
// immutable afterwards, so concurrent reads need no coordination beyond
// the registry lock.
package dialect

import (
	"strings"

	"github.com/leapstack-labs/analyst/pkg/core"
)

// IdentifierQuoting describes how a dialect quotes identifiers.
type IdentifierQuoting struct {
	Quote    string // Opening quote: ", `, [
	QuoteEnd string // Closing quote (] for mssql, otherwise same as Quote)
	Escape   string // Escape sequence for the closing quote inside names
}

// QuoteIdentifier quotes a name using the dialect's quote characters.
func (q IdentifierQuoting) QuoteIdentifier(name string) string {
	escaped := strings.ReplaceAll(name, q.QuoteEnd, q.Escape)
	return q.Quote + escaped + q.QuoteEnd
}

// Capabilities is the per-dialect immutable capability record.
type Capabilities struct {
	Name core.Dialect

	// Feature flags consulted by generation prompts and diagnosis.
	WindowFunctions bool
	CTE             bool
	JSONSupport     bool
	Ilike           bool
	QualifyClause   bool
	// TopNClause true means row limiting uses SELECT TOP n (mssql) rather
	// than a trailing LIMIT.
	TopNClause bool

	Identifiers IdentifierQuoting

	// Functions is the supported function set (upper-cased names).
	Functions []string

	// Prompt-facing idiom hints. Empty string means the dialect has no
	// reasonable idiom for the operation.
	LimitIdiom     string // e.g. "LIMIT n" or "TOP n"
	DateTruncIdiom string // e.g. "DATE_TRUNC('month', ts_column)"
	TimezoneIdiom  string // e.g. "ts_column AT TIME ZONE 'UTC'"
	StringAggIdiom string // e.g. "STRING_AGG(column, ',')"

	// Examples are valid statements in this dialect, shown to the LLM.
	Examples []string

	functions map[string]struct{} // built by Register
}

// Supports reports whether the named function is in the dialect's set.
// Lookup is case-insensitive.
func (c *Capabilities) Supports(fn string) bool {
	_, ok := c.functions[strings.ToUpper(fn)]
	return ok
}

// MissingFeature inspects an error message for syntax the dialect lacks and
// returns the capability name when one is found. This backs the
// dialect_unsupported_feature diagnosis.
func (c *Capabilities) MissingFeature(errMsg string) (string, bool) {
	msg := strings.ToUpper(errMsg)
	type probe struct {
		token     string
		supported bool
		feature   string
	}
	probes := []probe{
		{"QUALIFY", c.QualifyClause, "qualify_clause"},
		{"ILIKE", c.Ilike, "ilike"},
		{"OVER (", c.WindowFunctions, "window_functions"},
		{"OVER(", c.WindowFunctions, "window_functions"},
		{"WITH RECURSIVE", c.CTE, "cte"},
	}
	for _, p := range probes {
		if !p.supported && strings.Contains(msg, p.token) {
			return p.feature, true
		}
	}
	// Unknown function mentioned by name in the error text.
	for _, marker := range []string{"FUNCTION ", "UNKNOWN FUNCTION", "NO SUCH FUNCTION"} {
		if idx := strings.Index(msg, marker); idx >= 0 {
			rest := msg[idx+len(marker):]
			name := leadingIdentifier(rest)
			if name != "" && !c.Supports(name) && isKnownElsewhere(name) {
				return "function:" + strings.ToLower(name), true
			}
		}
	}
	return "", false
}

// leadingIdentifier extracts the first identifier-like token from s.
func leadingIdentifier(s string) string {
	s = strings.TrimLeft(s, " \"'`[")
	end := 0
	for end < len(s) {
		ch := s[end]
		if ch >= 'A' && ch <= 'Z' || ch >= '0' && ch <= '9' || ch == '_' {
			end++
			continue
		}
		break
	}
	return s[:end]
}

// isKnownElsewhere reports whether any registered dialect supports the
// function, distinguishing a cross-dialect slip from a hallucinated name.
func isKnownElsewhere(fn string) bool {
	for _, name := range List() {
		if caps, err := Get(name); err == nil && caps.Supports(fn) {
			return true
		}
	}
	return false
}
