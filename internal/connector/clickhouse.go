package connector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/leapstack-labs/analyst/pkg/core"
)

func init() {
	Register(core.DialectClickHouse, newClickHouse)
}

func newClickHouse(ctx context.Context, cfg Config, logger *slog.Logger) (Connector, error) {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 9000
	}
	database := cfg.Database
	if database == "" {
		database = "default"
	}

	db := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", host, port)},
		Auth: clickhouse.Auth{
			Database: database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}

	return &BaseSQLConnector{
		DB:       db,
		DialectN: core.DialectClickHouse,
		Logger:   logger,
		ClassifyHint: func(err error) (ErrorHint, bool) {
			msg := strings.ToLower(err.Error())
			switch {
			case strings.Contains(msg, "code: 497") || strings.Contains(msg, "code: 516"):
				return HintPermission, true
			case strings.Contains(msg, "code: 62"):
				return HintSyntax, true
			case strings.Contains(msg, "code: 159") || strings.Contains(msg, "code: 160"):
				return HintTimeout, true
			case strings.Contains(msg, "code: 53") || strings.Contains(msg, "code: 386"):
				return HintType, true
			}
			return HintUnknown, false
		},
		ListTablesSQL: `SELECT database, name FROM system.tables
			WHERE database = ? AND engine NOT LIKE '%View' ORDER BY name`,
		ListTablesArgs: []any{database},
		ColumnsSQL: `SELECT name, type, if(type LIKE 'Nullable%', 'YES', 'NO'), position
			FROM system.columns
			WHERE database = ? AND table = ?
			ORDER BY position`,
		QuoteTable: quoteDotted("`", "`"),
	}, nil
}
