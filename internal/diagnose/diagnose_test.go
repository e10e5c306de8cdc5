package diagnose

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/analyst/internal/connector"
	"github.com/leapstack-labs/analyst/pkg/core"
)

func qerr(hint connector.ErrorHint, msg string) error {
	return &connector.QueryError{Hint: hint, Message: msg, Err: errors.New(msg)}
}

func TestClassifySuccess(t *testing.T) {
	res := &core.Result{Columns: []string{"n"}, Rows: [][]any{{int64(1)}}, RowCount: 1}
	d := Classify(core.DialectPostgres, res, nil)
	if !d.Success() {
		t.Fatalf("expected success, got %+v", d)
	}
	if d.Fatal() {
		t.Fatalf("success must not be fatal")
	}
}

func TestClassifyEmptyResult(t *testing.T) {
	d := Classify(core.DialectPostgres, &core.Result{Columns: []string{"n"}}, nil)
	if d.Kind != core.DiagEmptyResult {
		t.Fatalf("kind = %q, want empty_result", d.Kind)
	}
	if !d.Recoverable {
		t.Fatalf("empty result should be recoverable")
	}

	// A nil result without an error counts as empty too.
	if d := Classify(core.DialectPostgres, nil, nil); d.Kind != core.DiagEmptyResult {
		t.Fatalf("nil result: kind = %q, want empty_result", d.Kind)
	}
}

func TestClassifyFatalKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want core.DiagnosisKind
	}{
		{"timeout", qerr(connector.HintTimeout, "canceling statement due to statement timeout"), core.DiagTimeout},
		{"permission", qerr(connector.HintPermission, "permission denied for table secrets"), core.DiagPermissionDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Classify(core.DialectPostgres, nil, tt.err)
			if d.Kind != tt.want {
				t.Fatalf("kind = %q, want %q", d.Kind, tt.want)
			}
			if !d.Fatal() {
				t.Fatalf("%s should be fatal", tt.want)
			}
		})
	}
}

func TestClassifyCollaboratorFailure(t *testing.T) {
	d := Classify(core.DialectPostgres, nil, errors.New("llm: connection reset by peer"))
	if d.Kind != core.DiagUnknown {
		t.Fatalf("kind = %q, want unknown", d.Kind)
	}
	if !d.Recoverable {
		t.Fatalf("collaborator failures consume a retry slot, they do not abort")
	}
}

func TestClassifySyntaxError(t *testing.T) {
	d := Classify(core.DialectPostgres, nil,
		qerr(connector.HintSyntax, "syntax error at or near \"frm\"\nLINE 1: SELECT frm orders"))
	if d.Kind != core.DiagSyntaxError {
		t.Fatalf("kind = %q, want syntax_error", d.Kind)
	}
	if !d.Recoverable {
		t.Fatalf("syntax errors are recoverable")
	}
	if d.Hint != "syntax error at or near \"frm\"" {
		t.Fatalf("hint should be the first line, got %q", d.Hint)
	}
}

func TestClassifyUnsupportedFeature(t *testing.T) {
	// QUALIFY is a capability miss on sqlite, not a plain syntax error.
	d := Classify(core.DialectSQLite, nil,
		qerr(connector.HintSyntax, `near "QUALIFY": syntax error`))
	if d.Kind != core.DiagUnsupportedFeature {
		t.Fatalf("kind = %q, want dialect_unsupported_feature", d.Kind)
	}
	if !d.Recoverable {
		t.Fatalf("capability misses are recoverable")
	}

	// The same text on a dialect that has QUALIFY stays a syntax error.
	d = Classify(core.DialectSnowflake, nil,
		qerr(connector.HintSyntax, `near "QUALIFY": syntax error`))
	if d.Kind != core.DiagSyntaxError {
		t.Fatalf("kind = %q, want syntax_error on snowflake", d.Kind)
	}
}

func TestClassifyUnsupportedFunctionHint(t *testing.T) {
	d := Classify(core.DialectPostgres, nil,
		qerr(connector.HintSyntax, "function group_concat(text) does not exist"))
	if d.Kind != core.DiagUnsupportedFeature {
		t.Fatalf("kind = %q, want dialect_unsupported_feature", d.Kind)
	}
	if d.Hint == "" {
		t.Fatalf("expected a rewrite hint for the missing function")
	}
}

func TestClassifyTypeMismatch(t *testing.T) {
	d := Classify(core.DialectMySQL, nil,
		qerr(connector.HintType, "conversion failed when converting date"))
	if d.Kind != core.DiagTypeMismatch || !d.Recoverable {
		t.Fatalf("got %+v, want recoverable type_mismatch", d)
	}
}
