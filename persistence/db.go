// Package persistence opens the database behind the user and session
// stores and keeps its schema up to date.
package persistence

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Options tune the connection pool
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
}

// Open connects to the database described by dsn. postgres:// and
// postgresql:// URLs use pgx, sqlite:// and file: URLs use the sqlite shim.
func Open(dsn string, opts ...Options) (*bun.DB, string, error) {
	dialect, driverDSN, err := ParseDSN(dsn)
	if err != nil {
		return nil, "", err
	}

	var db *bun.DB
	switch dialect {
	case DialectPostgres:
		sqldb, err := sql.Open("pgx", driverDSN)
		if err != nil {
			return nil, "", fmt.Errorf("open postgres: %w", err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	case DialectSQLite:
		sqldb, err := sql.Open(sqliteshim.ShimName, driverDSN)
		if err != nil {
			return nil, "", fmt.Errorf("open sqlite: %w", err)
		}
		// a single connection keeps in memory databases shared and
		// serializes writers
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	}

	for _, o := range opts {
		if o.MaxOpenConns > 0 && dialect == DialectPostgres {
			db.SetMaxOpenConns(o.MaxOpenConns)
		}
		if o.MaxIdleConns > 0 {
			db.SetMaxIdleConns(o.MaxIdleConns)
		}
	}

	return db, dialect, nil
}

// ParseDSN returns the dialect and the DSN understood by its driver
func ParseDSN(dsn string) (string, string, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return "", "", fmt.Errorf("empty database url")
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DialectPostgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return DialectSQLite, strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return DialectSQLite, strings.TrimPrefix(dsn, "sqlite:"), nil
	case strings.HasPrefix(dsn, "file:"), dsn == ":memory:":
		return DialectSQLite, dsn, nil
	}
	return "", "", fmt.Errorf("unsupported database url scheme: %q", redact(dsn))
}

func redact(dsn string) string {
	if i := strings.Index(dsn, "://"); i > 0 {
		return dsn[:i] + "://..."
	}
	return "..."
}
