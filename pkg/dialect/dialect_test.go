package dialect

import (
	"errors"
	"testing"

	"github.com/leapstack-labs/analyst/pkg/core"
)

func TestRegistry_AllRecognizedDialects(t *testing.T) {
	for _, d := range core.Dialects() {
		caps, err := Get(d)
		if err != nil {
			t.Fatalf("dialect %s not registered: %v", d, err)
		}
		if caps.Name != d {
			t.Errorf("dialect %s: capability record names %s", d, caps.Name)
		}
		if !caps.CTE {
			t.Errorf("dialect %s: expected CTE support", d)
		}
	}
}

func TestRegistry_UnknownDialect(t *testing.T) {
	_, err := Get("oracle")
	if err == nil {
		t.Fatal("expected error for unregistered dialect")
	}
	var unknown *UnknownDialectError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownDialectError, got %T", err)
	}
	if unknown.Dialect != "oracle" {
		t.Errorf("error names dialect %q", unknown.Dialect)
	}
}

func TestRegistry_CaseInsensitiveLookup(t *testing.T) {
	caps, err := Get("POSTGRES")
	if err != nil {
		t.Fatalf("uppercase lookup failed: %v", err)
	}
	if caps.Name != core.DialectPostgres {
		t.Errorf("got %s", caps.Name)
	}
}

func TestCapabilities_Supports(t *testing.T) {
	caps, _ := Get(core.DialectPostgres)
	if !caps.Supports("string_agg") {
		t.Error("postgres should support string_agg (case-insensitive)")
	}
	if caps.Supports("GROUP_CONCAT") {
		t.Error("postgres should not support GROUP_CONCAT")
	}
}

func TestCapabilities_MissingFeature_Qualify(t *testing.T) {
	caps, _ := Get(core.DialectSQLite)
	feature, ok := caps.MissingFeature(`near "QUALIFY": syntax error`)
	if !ok {
		t.Fatal("expected QUALIFY to be flagged on sqlite")
	}
	if feature != "qualify_clause" {
		t.Errorf("got feature %q", feature)
	}
}

func TestCapabilities_MissingFeature_SupportedNotFlagged(t *testing.T) {
	caps, _ := Get(core.DialectSnowflake)
	if _, ok := caps.MissingFeature("syntax error near QUALIFY"); ok {
		t.Error("snowflake supports QUALIFY; must not be flagged")
	}
}

func TestCapabilities_MissingFeature_CrossDialectFunction(t *testing.T) {
	caps, _ := Get(core.DialectPostgres)
	feature, ok := caps.MissingFeature(`function GROUP_CONCAT does not exist`)
	if !ok {
		t.Fatal("expected GROUP_CONCAT to be flagged on postgres")
	}
	if feature != "function:group_concat" {
		t.Errorf("got feature %q", feature)
	}
}

func TestIdentifierQuoting(t *testing.T) {
	mssql, _ := Get(core.DialectMSSQL)
	if got := mssql.Identifiers.QuoteIdentifier("order]s"); got != "[order]]s]" {
		t.Errorf("mssql quoting: got %q", got)
	}
	pg, _ := Get(core.DialectPostgres)
	if got := pg.Identifiers.QuoteIdentifier("select"); got != `"select"` {
		t.Errorf("postgres quoting: got %q", got)
	}
}

func TestTopNClause(t *testing.T) {
	mssql, _ := Get(core.DialectMSSQL)
	if !mssql.TopNClause {
		t.Error("mssql uses TOP n")
	}
	pg, _ := Get(core.DialectPostgres)
	if pg.TopNClause {
		t.Error("postgres uses LIMIT")
	}
}
