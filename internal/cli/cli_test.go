package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDialectsCommand(t *testing.T) {
	out, err := runCommand(t, "dialects")
	require.NoError(t, err)
	for _, d := range []string{"postgres", "mysql", "sqlite", "duckdb", "snowflake", "bigquery", "clickhouse", "trino", "mssql"} {
		assert.Contains(t, out, d)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "analyst")
	assert.Contains(t, out, Version)
}

func TestAskCommand_RequiresQuestion(t *testing.T) {
	_, err := runCommand(t, "ask")
	require.Error(t, err)
}

func TestAskCommand_RequiresDialect(t *testing.T) {
	_, err := runCommand(t, "ask", "revenue by region")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dialect")
}
