package connector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/analyst/pkg/core"
)

func TestBaseSQLConnector_Execute(t *testing.T) {
	tests := []struct {
		name       string
		setupDB    bool
		setupMock  func(mock sqlmock.Sqlmock)
		sql        string
		expectErr  bool
		expectHint ErrorHint
		checkRes   func(t *testing.T, res *core.Result)
	}{
		{
			name:       "execute without connection",
			setupDB:    false,
			sql:        "SELECT 1",
			expectErr:  true,
			expectHint: HintUnknown,
		},
		{
			name:       "mutation rejected before reaching the driver",
			setupDB:    true,
			sql:        "DROP TABLE orders",
			expectErr:  true,
			expectHint: HintSyntax,
		},
		{
			name:    "rows scanned with byte slices as strings",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows([]string{"region", "total"}).
					AddRow([]byte("emea"), int64(42)).
					AddRow([]byte("apac"), int64(7))
				mock.ExpectQuery("SELECT region").WillReturnRows(rows)
			},
			sql: "SELECT region, total FROM sales",
			checkRes: func(t *testing.T, res *core.Result) {
				require.Equal(t, 2, res.RowCount)
				assert.Equal(t, []string{"region", "total"}, res.Columns)
				assert.Equal(t, "emea", res.Rows[0][0])
				assert.Equal(t, int64(42), res.Rows[0][1])
			},
		},
		{
			name:    "empty result set",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT region").
					WillReturnRows(sqlmock.NewRows([]string{"region"}))
			},
			sql: "SELECT region FROM sales WHERE 1 = 0",
			checkRes: func(t *testing.T, res *core.Result) {
				assert.Equal(t, 0, res.RowCount)
				assert.True(t, res.Empty())
			},
		},
		{
			name:    "permission error classified",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT secret").
					WillReturnError(errors.New("permission denied for table secrets"))
			},
			sql:        "SELECT secret FROM secrets",
			expectErr:  true,
			expectHint: HintPermission,
		},
		{
			name:    "syntax error classified",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT frm").
					WillReturnError(errors.New(`syntax error at or near "frm"`))
			},
			sql:        "SELECT frm orders",
			expectErr:  true,
			expectHint: HintSyntax,
		},
		{
			name:    "timeout error classified",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT big").
					WillReturnError(errors.New("canceling statement due to statement timeout"))
			},
			sql:        "SELECT big FROM huge",
			expectErr:  true,
			expectHint: HintTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLConnector{DialectN: core.DialectPostgres}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				defer func() { _ = db.Close() }()
				if tt.setupMock != nil {
					tt.setupMock(mock)
				}
				base.DB = db
			}

			res, err := base.Execute(context.Background(), tt.sql, 5*time.Second)
			if tt.expectErr {
				require.Error(t, err)
				var qe *QueryError
				require.ErrorAs(t, err, &qe)
				assert.Equal(t, tt.expectHint, qe.Hint)
				return
			}
			require.NoError(t, err)
			if tt.checkRes != nil {
				tt.checkRes(t, res)
			}
		})
	}
}

func TestBaseSQLConnector_DriverHintTakesOver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT x").WillReturnError(errors.New("ORA-00942"))

	base := &BaseSQLConnector{
		DB:       db,
		DialectN: core.DialectPostgres,
		ClassifyHint: func(err error) (ErrorHint, bool) {
			return HintSyntax, true
		},
	}

	_, err = base.Execute(context.Background(), "SELECT x FROM y", time.Second)
	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, HintSyntax, qe.Hint)
}

func TestClassifyCommon(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		msg  string
		want ErrorHint
	}{
		{"query timed out after 30s", HintTimeout},
		{"access denied for user 'ro'", HintPermission},
		{"conversion failed when converting date", HintType},
		{"no such table: orders", HintSyntax},
		{"relation \"orders\" does not exist", HintSyntax},
		{"something went sideways", HintUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyCommon(ctx, errors.New(tt.msg)))
		})
	}
}

func TestClassifyCommon_DeadlineExceeded(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	assert.Equal(t, HintTimeout, classifyCommon(ctx, errors.New("driver: bad connection")))
	assert.Equal(t, HintTimeout, classifyCommon(context.Background(), context.DeadlineExceeded))
}

type stubConnector struct {
	introspections int
	profile        *core.SchemaProfile
	closed         bool
}

func (s *stubConnector) Execute(ctx context.Context, sql string, timeout time.Duration) (*core.Result, error) {
	return &core.Result{SQL: sql}, nil
}

func (s *stubConnector) IntrospectSchema(ctx context.Context) (*core.SchemaProfile, error) {
	s.introspections++
	return s.profile, nil
}

func (s *stubConnector) Dialect() core.Dialect { return core.DialectDuckDB }

func (s *stubConnector) Close() error {
	s.closed = true
	return nil
}

func TestWithSchemaCache(t *testing.T) {
	stub := &stubConnector{
		profile: &core.SchemaProfile{Tables: []core.TableProfile{{Name: "orders"}}},
	}
	cached := WithSchemaCache(stub, time.Minute)

	ctx := context.Background()
	first, err := cached.IntrospectSchema(ctx)
	require.NoError(t, err)
	second, err := cached.IntrospectSchema(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, stub.introspections, "second call should hit the cache")

	require.NoError(t, cached.Close())
	assert.True(t, stub.closed)
}

func TestWithSchemaCache_DisabledTTL(t *testing.T) {
	stub := &stubConnector{profile: &core.SchemaProfile{}}
	assert.Equal(t, Connector(stub), WithSchemaCache(stub, 0))
}
