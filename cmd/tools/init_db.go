package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/cqs"
	"github.com/markchipman/cofoundry/factory"
	"github.com/markchipman/cofoundry/internal"
	"go.uber.org/zap"
)

type initDBOptions struct {
	definitionDir string
	dryRun        bool
}

// parseDatabaseFlags overlays command line flags on the env-loaded database
// settings.
func parseDatabaseFlags(flags *flag.FlagSet, cfg *cofoundry.DatabaseConfig) {
	flags.StringVar(&cfg.Host, "db-host", cfg.Host, "database host")
	flags.IntVar(&cfg.Port, "db-port", cfg.Port, "database port")
	flags.StringVar(&cfg.Database, "db-name", cfg.Database, "database name")
	flags.StringVar(&cfg.Username, "db-user", cfg.Username, "database user")
	flags.StringVar(&cfg.Password, "db-password", cfg.Password, "database password")
	flags.StringVar(&cfg.SSLMode, "db-ssl-mode", cfg.SSLMode, "database sslmode")
	flags.BoolVar(&cfg.UseIAMAuth, "db-iam-auth", cfg.UseIAMAuth, "authenticate with an Aurora DSQL IAM token")
	flags.StringVar(&cfg.TableNames.Definitions, "definitions-table", cfg.TableNames.Definitions, "definitions table name")
	flags.StringVar(&cfg.TableNames.Entities, "entities-table", cfg.TableNames.Entities, "entities table name")
	flags.StringVar(&cfg.TableNames.Versions, "versions-table", cfg.TableNames.Versions, "versions table name")
	flags.StringVar(&cfg.TableNames.PageBlocks, "page-blocks-table", cfg.TableNames.PageBlocks, "page blocks table name")
}

func newFlagSet(name string) *flag.FlagSet {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(os.Stdout)
	flags.Usage = func() {
		fmt.Printf("Usage: cofoundry-tools %s [options]\n\nOptions:\n", name)
		flags.PrintDefaults()
	}
	return flags
}

func parseInitDBArgs(args []string) (*cofoundry.Config, initDBOptions, error) {
	cfg, err := cofoundry.LoadConfigFromEnv()
	if err != nil {
		return nil, initDBOptions{}, err
	}
	flags := newFlagSet("init-db")
	parseDatabaseFlags(flags, &cfg.Database)

	opts := initDBOptions{}
	flags.StringVar(&opts.definitionDir, "definition-dir", cfg.Entity.DefinitionDirectory, "directory of custom entity definition files to register (optional)")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "print the DDL without connecting")

	if err := flags.Parse(args); err != nil {
		return nil, initDBOptions{}, err
	}
	return cfg, opts, nil
}

func runInitDB(args []string) error {
	cfg, opts, err := parseInitDBArgs(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	if opts.dryRun {
		for _, stmt := range internal.PostgresSchemaDDL(cfg.Database.TableNames) {
			fmt.Println(stmt + ";")
		}
		return nil
	}
	return initDatabase(context.Background(), cfg, opts)
}

func initDatabase(ctx context.Context, cfg *cofoundry.Config, opts initDBOptions) error {
	if err := internal.ValidatePostgresConfig(cfg.Database); err != nil {
		return err
	}
	pool, err := factory.NewDatabasePool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // no-op if committed

	if err := internal.ApplyPostgresSchema(ctx, tx, cfg.Database.TableNames); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	zap.S().Infow("database schema applied", "database", cfg.Database.Database)

	if opts.definitionDir == "" {
		return nil
	}
	return registerDefinitions(ctx, pool, cfg, opts.definitionDir)
}

// registerDefinitions ensures a definition row exists for every file in dir.
func registerDefinitions(ctx context.Context, pool *pgxpool.Pool, cfg *cofoundry.Config, dir string) error {
	defs, err := internal.LoadDefinitionRegistry(dir)
	if err != nil {
		return err
	}
	repo, err := factory.NewPostgresRepository(pool, defs, cfg, factory.Options{})
	if err != nil {
		return err
	}

	system := cqs.Explicit(cqs.SystemExecutionContext(time.Now().UTC()))
	for _, code := range defs.Codes() {
		if err := repo.EnsureCustomEntityDefinitionExists(ctx, code, system); err != nil {
			return fmt.Errorf("register definition %s: %w", code, err)
		}
		zap.S().Infow("registered custom entity definition", "code", code)
	}
	zap.S().Infow("registered definitions from directory", "count", len(defs.Codes()), "dir", dir)
	return nil
}
