package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/factory"
	"github.com/markchipman/cofoundry/internal"
	"github.com/markchipman/cofoundry/internal/export"
	"go.uber.org/zap"
)

type exportOptions struct {
	definition   string
	status       string
	createBucket bool
}

func parseExportArgs(args []string) (*cofoundry.Config, exportOptions, error) {
	cfg, err := cofoundry.LoadConfigFromEnv()
	if err != nil {
		return nil, exportOptions{}, err
	}
	flags := newFlagSet("export")
	parseDatabaseFlags(flags, &cfg.Database)
	flags.StringVar(&cfg.Entity.DefinitionDirectory, "definition-dir", cfg.Entity.DefinitionDirectory, "directory of custom entity definition files")
	flags.StringVar(&cfg.Export.Bucket, "bucket", cfg.Export.Bucket, "destination bucket")
	flags.StringVar(&cfg.Export.Prefix, "prefix", cfg.Export.Prefix, "object key prefix")
	flags.StringVar(&cfg.Export.Endpoint, "s3-endpoint", cfg.Export.Endpoint, "custom S3 endpoint, e.g. a local rustfs")
	flags.BoolVar(&cfg.Export.UsePathStyle, "s3-path-style", cfg.Export.UsePathStyle, "use path-style S3 addressing")
	flags.IntVar(&cfg.Export.PageSize, "page-size", cfg.Export.PageSize, "render summaries per page")

	opts := exportOptions{}
	flags.StringVar(&opts.definition, "definition", "", "export a single definition code instead of all")
	flags.StringVar(&opts.status, "status", "published", "publish status query: published, preferPublished, draft or latest")
	flags.BoolVar(&opts.createBucket, "create-bucket", false, "create the bucket when it does not exist")

	if err := flags.Parse(args); err != nil {
		return nil, exportOptions{}, err
	}
	return cfg, opts, nil
}

func runExport(args []string) error {
	cfg, opts, err := parseExportArgs(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	status, ok := cofoundry.ParsePublishStatusQuery(opts.status)
	if !ok {
		return fmt.Errorf("invalid -status %q", opts.status)
	}
	if err := export.ValidateConfig(cfg.Export); err != nil {
		return err
	}
	ctx := context.Background()

	client, err := export.NewS3Client(ctx, cfg.Export)
	if err != nil {
		return err
	}
	if opts.createBucket {
		if err := export.EnsureBucket(ctx, client, cfg.Export.Bucket); err != nil {
			return err
		}
	}

	defs, err := internal.LoadDefinitionRegistry(cfg.Entity.DefinitionDirectory)
	if err != nil {
		return err
	}
	pool, err := factory.NewDatabasePool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	repo, err := factory.NewPostgresRepository(pool, defs, cfg, factory.Options{Logger: zap.L()})
	if err != nil {
		return err
	}

	exporter := export.NewExporter(repo, export.NewS3Uploader(client, cfg.Export.Bucket), cfg.Export,
		export.WithPublishStatus(status))

	var results []export.Result
	if opts.definition != "" {
		res, err := exporter.ExportDefinition(ctx, opts.definition)
		if err != nil {
			return err
		}
		results = append(results, res)
	} else if results, err = exporter.ExportAll(ctx); err != nil {
		return err
	}

	for _, res := range results {
		fmt.Printf("s3://%s/%s (%d items)\n", cfg.Export.Bucket, res.Key, res.Items)
	}
	return nil
}
