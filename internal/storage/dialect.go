package storage

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/quintave/quintave/internal/common"
)

// dialect captures the handful of places where SQLite and PostgreSQL differ.
// Queries are written with ? placeholders and rebound per dialect.
type dialect struct {
	ddl        *strings.Replacer
	name       string
	forUpdate  string
	dollarArgs bool
}

var sqliteDialect = dialect{
	name: "sqlite3",
	ddl: strings.NewReplacer(
		"{{id}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{money}}", "TEXT",
		"{{time}}", "DATETIME",
		"{{json}}", "TEXT",
		"{{false}}", "0",
		"{{true}}", "1",
	),
}

var postgresDialect = dialect{
	name:       "postgres",
	dollarArgs: true,
	forUpdate:  " FOR UPDATE",
	ddl: strings.NewReplacer(
		"{{id}}", "BIGSERIAL PRIMARY KEY",
		"{{money}}", "NUMERIC(12,2)",
		"{{time}}", "TIMESTAMPTZ",
		"{{json}}", "JSONB",
		"{{false}}", "FALSE",
		"{{true}}", "TRUE",
	),
}

// rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL.
func (d dialect) rebind(query string) string {
	if !d.dollarArgs {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// schema expands the column type placeholders used in migrations.
func (d dialect) schema(ddl string) string {
	return d.ddl.Replace(ddl)
}

// classifyConnError marks connection failures that another attempt cannot
// fix (bad credentials, unknown database, cancelled context) so retries stop.
func classifyConnError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &common.RetryableError{Err: err, Retryable: false}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "28", "3D", "42":
			return &common.RetryableError{Err: err, Retryable: false}
		}
	}
	return &common.RetryableError{Err: err, Retryable: true}
}

// isUniqueViolation reports whether err is a unique constraint failure from
// either driver.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	return false
}
