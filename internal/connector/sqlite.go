package connector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/leapstack-labs/analyst/pkg/core"
)

func init() {
	Register(core.DialectSQLite, newSQLite)
}

func newSQLite(ctx context.Context, cfg Config, logger *slog.Logger) (Connector, error) {
	path := cfg.Path
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}

	return &BaseSQLConnector{
		DB:       db,
		DialectN: core.DialectSQLite,
		Logger:   logger,
		// sqlite has no schemas; the list query reports an empty schema
		// and the columns query burns the schema placeholder on it.
		ListTablesSQL: `SELECT '', name FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`,
		ColumnsSQL: `SELECT name, type,
			CASE WHEN "notnull" = 0 THEN 'YES' ELSE 'NO' END,
			cid + 1
			FROM pragma_table_info(?2) WHERE ?1 = ''`,
		QuoteTable: quoteDotted(`"`, `"`),
	}, nil
}
