package internal

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/markchipman/cofoundry"
)

// ValidatePostgresConfig performs basic sanity checks on Postgres-related settings.
func ValidatePostgresConfig(cfg cofoundry.DatabaseConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("database.port must be a valid TCP port")
	}
	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("database.maxConnections must be greater than 0")
	}
	if cfg.Database == "" {
		return fmt.Errorf("database.database is required")
	}
	return nil
}

type healthTarget interface {
	Ping(ctx context.Context) error
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresHealthCheck pings db and checks that the entity table is queryable.
// timeout may be 0 to use a sensible default (5s).
func PostgresHealthCheck(ctx context.Context, db healthTarget, names cofoundry.TableNames, timeout time.Duration) error {
	if db == nil {
		return fmt.Errorf("nil database handle")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}

	query := fmt.Sprintf("SELECT count(*) FROM %s WHERE false", newPgTables(names).entities)
	var n int
	if err := db.QueryRow(ctx, query).Scan(&n); err != nil {
		return fmt.Errorf("postgres entity table check failed: %w", err)
	}
	return nil
}
