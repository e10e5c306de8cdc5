// Package connector provides read-only database access for the analyst
// engine: query execution with timeout and error-kind mapping, and schema
// introspection.
//
// Connectors are registered per dialect with a factory, mirroring the
// adapter registry pattern: importing a driver file is enough to make its
// dialect constructible.
package connector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leapstack-labs/analyst/pkg/core"
)

// ErrorHint is the connector-level classification of an execution error.
// The diagnosis classifier turns hints into the full taxonomy.
type ErrorHint string

const (
	HintTimeout    ErrorHint = "timeout"
	HintPermission ErrorHint = "permission"
	HintSyntax     ErrorHint = "syntax"
	HintType       ErrorHint = "type"
	HintUnknown    ErrorHint = "unknown"
)

// QueryError wraps a failed execution with its classified hint.
type QueryError struct {
	Hint    ErrorHint
	Message string
	Err     error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed (%s): %s", e.Hint, e.Message)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Connector executes read queries and introspects schemas for one data
// source. The engine never issues DDL or DML through a connector.
type Connector interface {
	// Execute runs one read query with the given timeout. On success it
	// returns the full result set; on failure a *QueryError.
	Execute(ctx context.Context, sql string, timeout time.Duration) (*core.Result, error)

	// IntrospectSchema discovers tables, columns, row counts, and sample
	// rows for prompt grounding.
	IntrospectSchema(ctx context.Context) (*core.SchemaProfile, error)

	// Dialect returns the dialect this connector speaks.
	Dialect() core.Dialect

	// Close releases the underlying connection.
	Close() error
}

// Config holds connection settings for a data source.
type Config struct {
	// Dialect selects the connector implementation.
	Dialect core.Dialect `koanf:"dialect"`
	// Path is the file path for file-based databases (duckdb, sqlite).
	// Use ":memory:" for in-memory databases.
	Path string `koanf:"path"`
	// DSN overrides all other connection fields when set.
	DSN      string            `koanf:"dsn"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	Username string            `koanf:"username"`
	Password string            `koanf:"password"`
	Schema   string            `koanf:"schema"`
	Options  map[string]string `koanf:"options"`
}

// Factory creates a connected Connector from a config. A nil logger
// discards output.
type Factory func(ctx context.Context, cfg Config, logger *slog.Logger) (Connector, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[core.Dialect]Factory)
)

// Register adds a connector factory for a dialect. Called from driver
// files at init time.
func Register(d core.Dialect, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[d] = f
}

// New creates and connects a connector for the configured dialect.
// Dialects with capability entries but no bundled driver fail here with
// an error naming the available drivers.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Connector, error) {
	factoriesMu.RLock()
	f, ok := factories[cfg.Dialect]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no connector driver for dialect %q (available: %s)",
			cfg.Dialect, strings.Join(available(), ", "))
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return f(ctx, cfg, logger)
}

// Available returns the dialects with a bundled driver, sorted.
func Available() []core.Dialect {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	out := make([]core.Dialect, 0, len(factories))
	for d := range factories {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func available() []string {
	ds := Available()
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = string(d)
	}
	return out
}

// readOnlyPrefixes are the statement forms a connector will execute.
var readOnlyPrefixes = []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "EXPLAIN", "PRAGMA"}

// EnsureReadOnly rejects statements that are not read queries. The check
// runs before any SQL reaches a database.
func EnsureReadOnly(sqlText string) error {
	trimmed := strings.TrimSpace(sqlText)
	// Strip leading line comments the LLM sometimes emits.
	for strings.HasPrefix(trimmed, "--") {
		if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
			trimmed = strings.TrimSpace(trimmed[idx+1:])
		} else {
			trimmed = ""
		}
	}
	if trimmed == "" {
		return fmt.Errorf("empty statement")
	}
	upper := strings.ToUpper(trimmed)
	for _, p := range readOnlyPrefixes {
		if strings.HasPrefix(upper, p) {
			return nil
		}
	}
	return fmt.Errorf("statement is not a read query")
}
