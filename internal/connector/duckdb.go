package connector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/leapstack-labs/analyst/pkg/core"
)

func init() {
	Register(core.DialectDuckDB, newDuckDB)
}

// newDuckDB opens a DuckDB database. An empty or ":memory:" Path means
// in-memory.
func newDuckDB(ctx context.Context, cfg Config, logger *slog.Logger) (Connector, error) {
	path := cfg.Path
	if path == ":memory:" {
		path = ""
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping duckdb: %w", err)
	}

	schema := cfg.Schema
	if schema == "" {
		schema = "main"
	}
	return &BaseSQLConnector{
		DB:       db,
		DialectN: core.DialectDuckDB,
		Logger:   logger,
		ListTablesSQL: `SELECT table_schema, table_name FROM information_schema.tables
			WHERE table_type = 'BASE TABLE' AND table_schema = ?`,
		ListTablesArgs: []any{schema},
		ColumnsSQL: `SELECT column_name, data_type, is_nullable, ordinal_position
			FROM information_schema.columns
			WHERE table_schema = ? AND table_name = ?
			ORDER BY ordinal_position`,
		QuoteTable: quoteDotted(`"`, `"`),
	}, nil
}
