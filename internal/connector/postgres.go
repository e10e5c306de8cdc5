package connector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/leapstack-labs/analyst/pkg/core"
)

func init() {
	Register(core.DialectPostgres, newPostgres)
}

func newPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (Connector, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = buildPostgresDSN(cfg)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	schema := cfg.Schema
	if schema == "" {
		schema = "public"
	}
	return &BaseSQLConnector{
		DB:       db,
		DialectN: core.DialectPostgres,
		Logger:   logger,
		ClassifyHint: func(err error) (ErrorHint, bool) {
			msg := strings.ToLower(err.Error())
			// pgx surfaces SQLSTATE codes in error text.
			switch {
			case strings.Contains(msg, "sqlstate 42501"):
				return HintPermission, true
			case strings.Contains(msg, "sqlstate 57014"):
				return HintTimeout, true
			case strings.Contains(msg, "sqlstate 42804"), strings.Contains(msg, "sqlstate 22p02"):
				return HintType, true
			case strings.Contains(msg, "sqlstate 42"):
				return HintSyntax, true
			}
			return HintUnknown, false
		},
		ListTablesSQL: `SELECT table_schema, table_name FROM information_schema.tables
			WHERE table_type = 'BASE TABLE' AND table_schema = $1
			ORDER BY table_name`,
		ListTablesArgs: []any{schema},
		ColumnsSQL: `SELECT column_name, data_type, is_nullable, ordinal_position
			FROM information_schema.columns
			WHERE table_schema = $1 AND table_name = $2
			ORDER BY ordinal_position`,
		QuoteTable: quoteDotted(`"`, `"`),
	}, nil
}

// buildPostgresDSN constructs a key=value connection string.
func buildPostgresDSN(cfg Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := "disable"
	if cfg.Options != nil {
		if mode, ok := cfg.Options["sslmode"]; ok {
			sslmode = mode
		}
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, cfg.Database, sslmode)
	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.Username)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	return dsn
}
