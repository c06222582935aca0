package sqlstore

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/storage"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Dialect names a supported database/sql driver
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite3"
)

// ParseDialect maps a storage type onto a dialect
func ParseDialect(s string) (Dialect, error) {
	switch s {
	case "postgres", "postgresql":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	}
	return "", fmt.Errorf("unsupported database type %q", s)
}

var placeholder = regexp.MustCompile(`\$(\d+)`)

// rebind rewrites $N placeholders for drivers that number them as ?N
func (d Dialect) rebind(query string) string {
	if d == DialectSQLite {
		return placeholder.ReplaceAllString(query, "?$1")
	}
	return query
}

// translate maps driver constraint errors onto the storage error contract
func translate(err error, kind, id string) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s %q: %w", kind, id, storage.ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s %q references a missing record: %w", kind, id, auth.ErrNotFound)
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%s %q: %w", kind, id, storage.ErrConflict)
		case sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%s %q references a missing record: %w", kind, id, auth.ErrNotFound)
		}
	}

	return fmt.Errorf("failed to write %s: %w", kind, err)
}
