// Package diagnose classifies the outcome of a SQL execution attempt into
// a small taxonomy that drives the refinement loop. Classification is
// first-match: fatal conditions win over recoverable ones, and a dialect
// capability miss is recognized before falling back to a generic syntax
// diagnosis.
package diagnose

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/analyst/internal/connector"
	"github.com/leapstack-labs/analyst/pkg/core"
	"github.com/leapstack-labs/analyst/pkg/dialect"
)

// Classify turns one execution outcome into a Diagnosis.
//
// err is the connector error, if any; res is the result, if any. At most
// one of the two is meaningful per attempt. The dialect is consulted to
// recognize capability misses in error text.
func Classify(d core.Dialect, res *core.Result, err error) core.Diagnosis {
	if err != nil {
		return classifyError(d, err)
	}
	if res == nil || res.Empty() {
		return core.Diagnosis{
			Kind:        core.DiagEmptyResult,
			Recoverable: true,
			Hint:        "the query matched no rows; loosen filters or widen the time window",
		}
	}
	return core.Diagnosis{Kind: core.DiagNone}
}

func classifyError(d core.Dialect, err error) core.Diagnosis {
	hint := connector.HintUnknown
	var qe *connector.QueryError
	if errors.As(err, &qe) {
		hint = qe.Hint
	}

	switch hint {
	case connector.HintTimeout:
		return core.Diagnosis{
			Kind: core.DiagTimeout,
			Hint: "the query exceeded its time budget",
		}
	case connector.HintPermission:
		return core.Diagnosis{
			Kind: core.DiagPermissionDenied,
			Hint: "the database refused access to a referenced object",
		}
	}

	// A capability miss masquerades as a syntax or unknown-function error,
	// so probe the dialect registry before settling on syntax.
	if caps, cerr := dialect.Get(d); cerr == nil {
		if feature, ok := caps.MissingFeature(err.Error()); ok {
			return core.Diagnosis{
				Kind:        core.DiagUnsupportedFeature,
				Recoverable: true,
				Hint:        featureHint(caps, feature),
			}
		}
	}

	switch hint {
	case connector.HintSyntax:
		return core.Diagnosis{
			Kind:        core.DiagSyntaxError,
			Recoverable: true,
			Hint:        firstLine(err.Error()),
		}
	case connector.HintType:
		return core.Diagnosis{
			Kind:        core.DiagTypeMismatch,
			Recoverable: true,
			Hint:        "an operand or cast was rejected; check column types against the schema",
		}
	}

	// Collaborator failures and anything else outside the taxonomy. These
	// are retried like any recoverable error, bounded by the budget.
	return core.Diagnosis{Kind: core.DiagUnknown, Recoverable: true, Hint: firstLine(err.Error())}
}

// featureHint describes a capability miss in terms the next prompt can
// act on, pointing at the dialect's own idiom where one exists.
func featureHint(caps *dialect.Capabilities, feature string) string {
	if fn, ok := strings.CutPrefix(feature, "function:"); ok {
		if fn == "string_agg" || fn == "group_concat" || fn == "listagg" {
			return fmt.Sprintf("%s is not available on %s; aggregate strings with %s",
				fn, caps.Name, caps.StringAggIdiom)
		}
		return fmt.Sprintf("%s is not available on %s; rewrite using supported functions only", fn, caps.Name)
	}
	switch feature {
	case "qualify_clause":
		return fmt.Sprintf("%s has no QUALIFY clause; filter window results in an outer query or CTE", caps.Name)
	case "ilike":
		return fmt.Sprintf("%s has no ILIKE; use LOWER(column) LIKE LOWER(pattern)", caps.Name)
	case "window_functions":
		return fmt.Sprintf("%s does not support window functions; restructure with joins or subqueries", caps.Name)
	case "cte":
		return fmt.Sprintf("%s does not support this CTE form; inline the subquery", caps.Name)
	default:
		return fmt.Sprintf("%s does not support %s", caps.Name, feature)
	}
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
