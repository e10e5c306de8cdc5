package connector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureReadOnly(t *testing.T) {
	tests := []struct {
		name      string
		sql       string
		expectErr bool
	}{
		{
			name: "plain select",
			sql:  "SELECT * FROM orders",
		},
		{
			name: "cte",
			sql:  "WITH t AS (SELECT 1) SELECT * FROM t",
		},
		{
			name: "lowercase select",
			sql:  "select count(*) from orders",
		},
		{
			name: "explain",
			sql:  "EXPLAIN SELECT 1",
		},
		{
			name: "leading line comment",
			sql:  "-- revenue per region\nSELECT region, sum(amount) FROM orders GROUP BY 1",
		},
		{
			name: "leading whitespace",
			sql:  "\n\t SELECT 1",
		},
		{
			name:      "insert rejected",
			sql:       "INSERT INTO orders VALUES (1)",
			expectErr: true,
		},
		{
			name:      "delete rejected",
			sql:       "DELETE FROM orders",
			expectErr: true,
		},
		{
			name:      "drop rejected",
			sql:       "DROP TABLE orders",
			expectErr: true,
		},
		{
			name:      "empty statement",
			sql:       "   ",
			expectErr: true,
		},
		{
			name:      "comment only",
			sql:       "-- nothing here",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := EnsureReadOnly(tt.sql)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAvailable(t *testing.T) {
	ds := Available()
	assert.NotEmpty(t, ds)
	for i := 1; i < len(ds); i++ {
		assert.Less(t, string(ds[i-1]), string(ds[i]), "dialects should be sorted")
	}
}

func TestQueryError_Unwrap(t *testing.T) {
	inner := assert.AnError
	qe := &QueryError{Hint: HintSyntax, Message: "bad sql", Err: inner}
	assert.ErrorIs(t, qe, inner)
	assert.Contains(t, qe.Error(), "bad sql")
}
