package persistence

import (
	"context"
	"fmt"
	"time"

	pbun "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-auth-boilerplate"
)

// Logger receives migration progress
type Logger interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}

const migrationsLabel = "data/sql/migrations"

// Migrate applies the embedded migrations for dialect. Both dialect
// directories are validated so they can not drift apart.
func Migrate(ctx context.Context, db *bun.DB, dialect string, logger Logger) error {
	if dialect != DialectPostgres && dialect != DialectSQLite {
		return fmt.Errorf("unsupported dialect %q", dialect)
	}
	if logger == nil {
		logger = nopLogger{}
	}

	fsys, err := auth.Migrations()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	client, err := pbun.New(clientConfig{driver: dialect}, db.DB, db.Dialect())
	if err != nil {
		return fmt.Errorf("persistence client: %w", err)
	}

	client.RegisterDialectMigrations(
		fsys,
		pbun.WithDialectSourceLabel(migrationsLabel),
		pbun.WithValidationTargets(DialectPostgres, DialectSQLite),
	)

	if err := client.ValidateDialects(ctx); err != nil {
		logger.Error("migration dialects out of sync", "error", err)
		return fmt.Errorf("validate migrations: %w", err)
	}

	if err := client.Migrate(ctx); err != nil {
		logger.Error("migrations failed", "dialect", dialect, "error", err)
		return fmt.Errorf("migrate: %w", err)
	}

	if report := client.Report(); report != nil && !report.IsZero() {
		logger.Debug("migration report", "report", report.String())
	}
	logger.Debug("migrations applied", "dialect", dialect)

	return nil
}

// clientConfig describes a database that is already open, so only the
// dialect matters to the persistence client.
type clientConfig struct {
	driver string
}

func (c clientConfig) GetDebug() bool                { return false }
func (c clientConfig) GetDriver() string             { return c.driver }
func (c clientConfig) GetServer() string             { return "" }
func (c clientConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c clientConfig) GetOtelIdentifier() string     { return "" }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
