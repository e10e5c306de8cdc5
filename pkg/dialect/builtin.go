package dialect

import "github.com/leapstack-labs/analyst/pkg/core"

// Built-in capability records for all recognized dialects.
//
// Function sets cover the aggregate, date, and string functions the SQL
// generator is steered towards; they are intentionally not exhaustive
// catalogs of each database.

var commonFunctions = []string{
	"COUNT", "SUM", "AVG", "MIN", "MAX",
	"COALESCE", "NULLIF", "CAST", "ABS", "ROUND",
	"LOWER", "UPPER", "TRIM", "LENGTH", "SUBSTR", "REPLACE", "CONCAT",
}

var windowFunctions = []string{
	"ROW_NUMBER", "RANK", "DENSE_RANK", "LAG", "LEAD", "NTILE",
	"FIRST_VALUE", "LAST_VALUE",
}

func withCommon(extra ...string) []string {
	out := make([]string, 0, len(commonFunctions)+len(windowFunctions)+len(extra))
	out = append(out, commonFunctions...)
	out = append(out, windowFunctions...)
	out = append(out, extra...)
	return out
}

var doubleQuoted = IdentifierQuoting{Quote: `"`, QuoteEnd: `"`, Escape: `""`}
var backQuoted = IdentifierQuoting{Quote: "`", QuoteEnd: "`", Escape: "``"}

func init() {
	Register(&Capabilities{
		Name:            core.DialectPostgres,
		WindowFunctions: true,
		CTE:             true,
		JSONSupport:     true,
		Ilike:           true,
		Identifiers:     doubleQuoted,
		Functions:       withCommon("DATE_TRUNC", "STRING_AGG", "PERCENTILE_CONT", "NOW", "EXTRACT", "TO_CHAR", "JSONB_AGG"),
		LimitIdiom:      "LIMIT n",
		DateTruncIdiom:  "DATE_TRUNC('month', ts_column)",
		TimezoneIdiom:   "ts_column AT TIME ZONE 'UTC'",
		StringAggIdiom:  "STRING_AGG(column, ',')",
		Examples: []string{
			"SELECT DATE_TRUNC('month', created_at) AS month, COUNT(*) FROM orders GROUP BY 1",
			"SELECT * FROM users WHERE email ILIKE '%@example.com'",
			"WITH monthly AS (SELECT 1) SELECT * FROM monthly",
		},
	})

	Register(&Capabilities{
		Name:            core.DialectMySQL,
		WindowFunctions: true,
		CTE:             true,
		JSONSupport:     true,
		Identifiers:     backQuoted,
		Functions:       withCommon("DATE_FORMAT", "GROUP_CONCAT", "CONVERT_TZ", "NOW", "STR_TO_DATE", "JSON_ARRAYAGG"),
		LimitIdiom:      "LIMIT n",
		DateTruncIdiom:  "DATE_FORMAT(ts_column, '%Y-%m-01')",
		TimezoneIdiom:   "CONVERT_TZ(ts_column, '+00:00', '+05:30')",
		StringAggIdiom:  "GROUP_CONCAT(column)",
		Examples: []string{
			"SELECT DATE_FORMAT(created_at, '%Y-%m-01') AS month, COUNT(*) FROM orders GROUP BY 1",
			"SELECT * FROM users WHERE LOWER(email) LIKE LOWER('%@example.com%')",
		},
	})

	Register(&Capabilities{
		Name:            core.DialectMSSQL,
		WindowFunctions: true,
		CTE:             true,
		JSONSupport:     true,
		TopNClause:      true,
		Identifiers:     IdentifierQuoting{Quote: "[", QuoteEnd: "]", Escape: "]]"},
		Functions:       withCommon("DATETRUNC", "STRING_AGG", "GETDATE", "DATEADD", "DATEDIFF", "FORMAT"),
		LimitIdiom:      "TOP n (directly after SELECT)",
		DateTruncIdiom:  "DATETRUNC(month, ts_column)",
		StringAggIdiom:  "STRING_AGG(column, ',')",
		Examples: []string{
			"SELECT TOP 100 DATETRUNC(month, created_at) AS month, COUNT(*) FROM [orders] GROUP BY DATETRUNC(month, created_at)",
			"SELECT STRING_AGG(name, ',') FROM [users]",
		},
	})

	Register(&Capabilities{
		Name:            core.DialectSQLite,
		WindowFunctions: true,
		CTE:             true,
		JSONSupport:     true,
		Identifiers:     doubleQuoted,
		Functions:       withCommon("STRFTIME", "GROUP_CONCAT", "DATETIME", "JULIANDAY", "JSON_GROUP_ARRAY"),
		LimitIdiom:      "LIMIT n",
		DateTruncIdiom:  "strftime('%Y-%m-01', ts_column)",
		StringAggIdiom:  "GROUP_CONCAT(column)",
		Examples: []string{
			"SELECT strftime('%Y-%m-01', created_at) AS month, COUNT(*) FROM orders GROUP BY 1",
			"SELECT * FROM users WHERE LOWER(email) LIKE LOWER('%@example.com%')",
		},
	})

	Register(&Capabilities{
		Name:            core.DialectSnowflake,
		WindowFunctions: true,
		CTE:             true,
		JSONSupport:     true,
		Ilike:           true,
		QualifyClause:   true,
		Identifiers:     doubleQuoted,
		Functions:       withCommon("DATE_TRUNC", "LISTAGG", "CONVERT_TIMEZONE", "CURRENT_TIMESTAMP", "TO_VARCHAR", "OBJECT_AGG"),
		LimitIdiom:      "LIMIT n",
		DateTruncIdiom:  "DATE_TRUNC('month', ts_column)",
		TimezoneIdiom:   "CONVERT_TIMEZONE('UTC', ts_column)",
		StringAggIdiom:  "LISTAGG(column, ',')",
		Examples: []string{
			"SELECT DATE_TRUNC('month', created_at) AS month, COUNT(*) FROM orders GROUP BY 1",
			"SELECT * FROM products QUALIFY ROW_NUMBER() OVER (ORDER BY sales DESC) <= 10",
		},
	})

	Register(&Capabilities{
		Name:            core.DialectBigQuery,
		WindowFunctions: true,
		CTE:             true,
		JSONSupport:     true,
		QualifyClause:   true,
		Identifiers:     backQuoted,
		Functions:       withCommon("TIMESTAMP_TRUNC", "DATE_TRUNC", "STRING_AGG", "CURRENT_TIMESTAMP", "FORMAT_TIMESTAMP", "ARRAY_AGG"),
		LimitIdiom:      "LIMIT n",
		DateTruncIdiom:  "TIMESTAMP_TRUNC(ts_column, MONTH)",
		TimezoneIdiom:   "TIMESTAMP(ts_column, 'UTC')",
		StringAggIdiom:  "STRING_AGG(column, ',')",
		Examples: []string{
			"SELECT TIMESTAMP_TRUNC(created_at, MONTH) AS month, COUNT(*) FROM `project.dataset.orders` GROUP BY 1",
			"SELECT STRING_AGG(name, ',') FROM `project.dataset.users`",
		},
	})

	Register(&Capabilities{
		Name:            core.DialectDuckDB,
		WindowFunctions: true,
		CTE:             true,
		JSONSupport:     true,
		Ilike:           true,
		QualifyClause:   true,
		Identifiers:     doubleQuoted,
		Functions:       withCommon("DATE_TRUNC", "STRING_AGG", "LIST", "NOW", "STRFTIME", "REGEXP_MATCHES"),
		LimitIdiom:      "LIMIT n",
		DateTruncIdiom:  "DATE_TRUNC('month', ts_column)",
		TimezoneIdiom:   "ts_column AT TIME ZONE 'UTC'",
		StringAggIdiom:  "STRING_AGG(column, ',')",
		Examples: []string{
			"SELECT DATE_TRUNC('month', created_at) AS month, COUNT(*) FROM orders GROUP BY 1",
			"SELECT * FROM users WHERE email ILIKE '%@example.com'",
		},
	})

	Register(&Capabilities{
		Name:            core.DialectTrino,
		WindowFunctions: true,
		CTE:             true,
		JSONSupport:     true,
		Identifiers:     doubleQuoted,
		Functions:       withCommon("DATE_TRUNC", "ARRAY_AGG", "AT_TIMEZONE", "NOW", "FORMAT_DATETIME", "APPROX_DISTINCT"),
		LimitIdiom:      "LIMIT n",
		DateTruncIdiom:  "DATE_TRUNC('month', ts_column)",
		TimezoneIdiom:   "AT_TIMEZONE(ts_column, 'UTC')",
		StringAggIdiom:  "ARRAY_JOIN(ARRAY_AGG(column), ',')",
		Examples: []string{
			"SELECT DATE_TRUNC('month', created_at) AS month, COUNT(*) FROM orders GROUP BY 1",
			"SELECT APPROX_DISTINCT(user_id) FROM events",
		},
	})

	Register(&Capabilities{
		Name:            core.DialectClickHouse,
		WindowFunctions: true,
		CTE:             true,
		JSONSupport:     true,
		Ilike:           true,
		Identifiers:     backQuoted,
		Functions:       withCommon("TOSTARTOFMONTH", "GROUPARRAY", "TOTIMEZONE", "NOW", "FORMATDATETIME", "UNIQ"),
		LimitIdiom:      "LIMIT n",
		DateTruncIdiom:  "toStartOfMonth(ts_column)",
		TimezoneIdiom:   "toTimeZone(ts_column, 'UTC')",
		StringAggIdiom:  "arrayStringConcat(groupArray(column), ',')",
		Examples: []string{
			"SELECT toStartOfMonth(created_at) AS month, COUNT(*) FROM orders GROUP BY month",
			"SELECT uniq(user_id) FROM events",
		},
	})
}
