// Package factory wires configuration into a ready-to-use custom entity
// repository.
//
// Usage:
//
//	cfg, _ := cofoundry.LoadConfigFromEnv()
//	logger, _ := factory.NewLogger(cfg.Logging)
//	zap.ReplaceGlobals(logger)
//
//	defs, _ := internal.LoadDefinitionRegistry(cfg.Entity.DefinitionDirectory)
//	pool, _ := factory.NewDatabasePool(ctx, cfg.Database)
//	repo, _ := factory.NewPostgresRepository(pool, defs, cfg, factory.Options{Logger: logger})
package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dsql/auth"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/cqs"
	"github.com/markchipman/cofoundry/internal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Options carries the optional collaborators of a repository.
type Options struct {
	// Provider resolves the ambient execution context; nil reads it from
	// the request context.
	Provider cqs.ContextProvider
	Logger   *zap.Logger
	// Tracer enables per-call spans when set.
	Tracer trace.Tracer
	// Now overrides the clock used for ambient contexts.
	Now func() time.Time
}

// NewRepository registers every custom entity handler over store, checks that
// the facade's requests are all handled and returns the facade.
func NewRepository(store internal.Store, defs *internal.DefinitionRegistry, cfg *cofoundry.Config, opts Options) (cofoundry.CustomEntityRepository, error) {
	if cfg == nil {
		cfg = cofoundry.DefaultConfig()
	}
	if defs == nil {
		return nil, fmt.Errorf("definition registry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.L()
	}
	provider := opts.Provider
	if provider == nil {
		provider = cqs.RequestContextProvider{Now: opts.Now}
	}

	registry := cqs.NewRegistry()
	if err := internal.NewHandlers(store, defs, cfg).Register(registry); err != nil {
		return nil, err
	}
	if err := registry.Validate(cofoundry.RequiredQueries(), cofoundry.RequiredCommands()); err != nil {
		return nil, fmt.Errorf("validate handler registration: %w", err)
	}

	execOpts := []cqs.Option{
		cqs.WithLogger(logger),
		cqs.WithMiddleware(
			cqs.Recovery(),
			cqs.Logging(logger, cfg.Execution.SlowThreshold),
			cqs.Tracing(opts.Tracer),
			cqs.Timeout(cfg.Execution.Timeout),
		),
	}
	queries := cqs.NewQueryExecutor(registry, provider, execOpts...)
	commands := cqs.NewCommandExecutor(registry, provider, execOpts...)

	logger.Sugar().Infow("custom entity repository ready",
		"definitions", len(defs.List()),
		"queries", len(registry.Names(cqs.KindQuery)),
		"commands", len(registry.Names(cqs.KindCommand)))
	return cofoundry.NewCustomEntityRepository(queries, commands), nil
}

// NewMemoryRepository builds a repository over a fresh in-memory store.
func NewMemoryRepository(defs *internal.DefinitionRegistry, cfg *cofoundry.Config, opts Options) (cofoundry.CustomEntityRepository, *internal.MemoryStore, error) {
	store := internal.NewMemoryStore()
	repo, err := NewRepository(store, defs, cfg, opts)
	if err != nil {
		return nil, nil, err
	}
	return repo, store, nil
}

// NewPostgresRepository builds a repository over pool using the configured
// table names.
func NewPostgresRepository(pool *pgxpool.Pool, defs *internal.DefinitionRegistry, cfg *cofoundry.Config, opts Options) (cofoundry.CustomEntityRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("database pool is required")
	}
	if cfg == nil {
		cfg = cofoundry.DefaultConfig()
	}
	return NewRepository(internal.NewPostgresStore(pool, cfg.Database.TableNames), defs, cfg, opts)
}

// generateIAMToken is replaced in tests.
var generateIAMToken = func(ctx context.Context, cfg cofoundry.DatabaseConfig) (string, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return "", fmt.Errorf("load aws config: %w", err)
	}
	return iamToken(ctx, cfg, awsCfg.Credentials)
}

func iamToken(ctx context.Context, cfg cofoundry.DatabaseConfig, creds aws.CredentialsProvider) (string, error) {
	endpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	if cfg.Username == "admin" {
		return auth.GenerateDBConnectAdminAuthToken(ctx, endpoint, cfg.Region, creds)
	}
	return auth.GenerateDbConnectAuthToken(ctx, endpoint, cfg.Region, creds)
}

// NewPoolConfig translates cfg into a pgxpool configuration. With IAM auth a
// fresh DSQL token is generated for every new connection.
func NewPoolConfig(ctx context.Context, cfg cofoundry.DatabaseConfig) (*pgxpool.Config, error) {
	if err := internal.ValidatePostgresConfig(cfg); err != nil {
		return nil, err
	}
	connString := fmt.Sprintf("postgres://%s@%s:%d/%s?sslmode=%s",
		cfg.Username, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	poolConfig.ConnConfig.ConnectTimeout = cfg.Timeout
	poolConfig.ConnConfig.Password = cfg.Password

	if cfg.UseIAMAuth {
		token, err := generateIAMToken(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("generate iam auth token: %w", err)
		}
		poolConfig.ConnConfig.Password = token
		poolConfig.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
			token, err := generateIAMToken(ctx, cfg)
			if err != nil {
				return fmt.Errorf("refresh iam auth token: %w", err)
			}
			cc.Password = token
			return nil
		}
	}
	return poolConfig, nil
}

// NewDatabasePool opens and pings a connection pool.
func NewDatabasePool(ctx context.Context, cfg cofoundry.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := NewPoolConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}
