package connector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/analyst/pkg/core"
)

// sampleRowLimit bounds the data sample attached to each table profile.
const sampleRowLimit = 3

// hintFunc maps a driver error to an ErrorHint. Driver files supply one
// with their error vocabulary; common patterns are handled here first.
type hintFunc func(err error) (ErrorHint, bool)

// BaseSQLConnector provides common database/sql functionality for
// connectors. Embed it in concrete drivers to get standard Execute,
// introspection plumbing, and Close.
type BaseSQLConnector struct {
	DB       *sql.DB
	DialectN core.Dialect
	Logger   *slog.Logger

	// ClassifyHint optionally extends error classification with
	// driver-specific patterns.
	ClassifyHint hintFunc

	// ListTablesSQL returns (table_schema, table_name) rows for the
	// configured database. Required for introspection.
	ListTablesSQL string
	// ListTablesArgs are bound to ListTablesSQL.
	ListTablesArgs []any
	// ColumnsSQL returns (column_name, data_type, is_nullable,
	// ordinal_position) for one table; bound args are schema, name.
	ColumnsSQL string
	// QuoteTable renders a table reference for COUNT and sample queries.
	QuoteTable func(schema, name string) string
}

// Dialect returns the dialect this connector speaks.
func (b *BaseSQLConnector) Dialect() core.Dialect { return b.DialectN }

func (b *BaseSQLConnector) log() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// Close closes the database connection.
func (b *BaseSQLConnector) Close() error {
	if b.DB != nil {
		b.log().Debug("closing connection", "dialect", b.DialectN)
		return b.DB.Close()
	}
	return nil
}

// Execute runs one read query with a timeout, scanning the full result
// set into a core.Result. Failures come back as *QueryError.
func (b *BaseSQLConnector) Execute(ctx context.Context, sqlText string, timeout time.Duration) (*core.Result, error) {
	if b.DB == nil {
		return nil, &QueryError{Hint: HintUnknown, Message: "connection not established"}
	}
	if err := EnsureReadOnly(sqlText); err != nil {
		return nil, &QueryError{Hint: HintSyntax, Message: err.Error(), Err: err}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := b.DB.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, b.wrapError(ctx, sqlText, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, b.wrapError(ctx, sqlText, err)
	}

	var data [][]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, b.wrapError(ctx, sqlText, err)
		}
		for i, v := range values {
			if bs, ok := v.([]byte); ok {
				values[i] = string(bs)
			}
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, b.wrapError(ctx, sqlText, err)
	}

	return &core.Result{
		SQL:      sqlText,
		Columns:  cols,
		Rows:     data,
		RowCount: len(data),
		Duration: time.Since(start),
	}, nil
}

// wrapError classifies a driver error into a QueryError.
func (b *BaseSQLConnector) wrapError(ctx context.Context, sqlText string, err error) *QueryError {
	hint := classifyCommon(ctx, err)
	if hint == HintUnknown && b.ClassifyHint != nil {
		if h, ok := b.ClassifyHint(err); ok {
			hint = h
		}
	}
	b.log().Debug("query failed", "dialect", b.DialectN, "hint", hint, "error", err)
	return &QueryError{Hint: hint, Message: err.Error(), Err: err}
}

// classifyCommon covers error shapes shared across drivers.
func classifyCommon(ctx context.Context, err error) ErrorHint {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return HintTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "canceling statement due to statement timeout"):
		return HintTimeout
	case strings.Contains(msg, "permission denied") || strings.Contains(msg, "access denied") ||
		strings.Contains(msg, "not authorized") || strings.Contains(msg, "insufficient privilege"):
		return HintPermission
	case strings.Contains(msg, "type mismatch") || strings.Contains(msg, "cannot be cast") ||
		strings.Contains(msg, "invalid input syntax for type") || strings.Contains(msg, "conversion failed"):
		return HintType
	case strings.Contains(msg, "syntax") || strings.Contains(msg, "no such") ||
		strings.Contains(msg, "does not exist") || strings.Contains(msg, "unknown column") ||
		strings.Contains(msg, "unknown table") || strings.Contains(msg, "not found") ||
		strings.Contains(msg, "parse error"):
		return HintSyntax
	default:
		return HintUnknown
	}
}

// IntrospectSchema discovers tables and columns via the driver-supplied
// catalog queries, attaching row counts and a small data sample per table.
func (b *BaseSQLConnector) IntrospectSchema(ctx context.Context) (*core.SchemaProfile, error) {
	if b.DB == nil {
		return nil, fmt.Errorf("connection not established")
	}
	if b.ListTablesSQL == "" || b.ColumnsSQL == "" {
		return nil, fmt.Errorf("introspection not configured for dialect %s", b.DialectN)
	}

	rows, err := b.DB.QueryContext(ctx, b.ListTablesSQL, b.ListTablesArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	type tableRef struct{ schema, name string }
	var refs []tableRef
	for rows.Next() {
		var r tableRef
		if err := rows.Scan(&r.schema, &r.name); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan table list: %w", err)
		}
		refs = append(refs, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("error iterating table list: %w", err)
	}
	_ = rows.Close()

	profile := &core.SchemaProfile{Tables: make([]core.TableProfile, 0, len(refs))}
	for _, ref := range refs {
		tp, err := b.profileTable(ctx, ref.schema, ref.name)
		if err != nil {
			// A single unreadable table must not sink discovery.
			b.log().Warn("skipping table during introspection",
				"table", ref.name, "error", err)
			continue
		}
		profile.Tables = append(profile.Tables, *tp)
	}
	b.log().Debug("schema introspected", "dialect", b.DialectN, "tables", len(profile.Tables))
	return profile, nil
}

func (b *BaseSQLConnector) profileTable(ctx context.Context, schema, name string) (*core.TableProfile, error) {
	rows, err := b.DB.QueryContext(ctx, b.ColumnsSQL, schema, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	var columns []core.ColumnProfile
	for rows.Next() {
		var col core.ColumnProfile
		var nullable string
		if err := rows.Scan(&col.Name, &col.Type, &nullable, &col.Position); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		col.Nullable = strings.EqualFold(nullable, "YES") || nullable == "1"
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	_ = rows.Close()
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s has no columns", name)
	}

	tp := &core.TableProfile{Schema: schema, Name: name, Columns: columns}

	ref := name
	if b.QuoteTable != nil {
		ref = b.QuoteTable(schema, name)
	}

	var count int64
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s", ref) //nolint:gosec // ref comes from the catalog, not user input
	if err := b.DB.QueryRowContext(ctx, countSQL).Scan(&count); err == nil {
		tp.RowCount = count
	}

	sampleSQL := fmt.Sprintf("SELECT * FROM %s LIMIT %d", ref, sampleRowLimit) //nolint:gosec // see above
	if sample, err := b.Execute(ctx, sampleSQL, 5*time.Second); err == nil {
		tp.SampleRows = sample.Rows
	}

	return tp, nil
}
