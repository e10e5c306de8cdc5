package connector

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/leapstack-labs/analyst/pkg/core"
)

func init() {
	Register(core.DialectMySQL, newMySQL)
}

func newMySQL(ctx context.Context, cfg Config, logger *slog.Logger) (Connector, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = buildMySQLDSN(cfg)
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	return &BaseSQLConnector{
		DB:       db,
		DialectN: core.DialectMySQL,
		Logger:   logger,
		ClassifyHint: func(err error) (ErrorHint, bool) {
			msg := strings.ToLower(err.Error())
			switch {
			case strings.Contains(msg, "error 1044") || strings.Contains(msg, "error 1142"):
				return HintPermission, true
			case strings.Contains(msg, "error 1064"):
				return HintSyntax, true
			case strings.Contains(msg, "error 3024"):
				return HintTimeout, true
			}
			return HintUnknown, false
		},
		ListTablesSQL: `SELECT table_schema, table_name FROM information_schema.tables
			WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
			ORDER BY table_name`,
		ColumnsSQL: `SELECT column_name, data_type, is_nullable, ordinal_position
			FROM information_schema.columns
			WHERE table_schema = ? AND table_name = ?
			ORDER BY ordinal_position`,
		QuoteTable: quoteDotted("`", "`"),
	}, nil
}

// buildMySQLDSN constructs a go-sql-driver DSN: user:pass@tcp(host:port)/db.
func buildMySQLDSN(cfg Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	auth := ""
	if cfg.Username != "" {
		auth = cfg.Username
		if cfg.Password != "" {
			auth += ":" + cfg.Password
		}
		auth += "@"
	}
	return fmt.Sprintf("%stcp(%s:%d)/%s?parseTime=true", auth, host, port, cfg.Database)
}
