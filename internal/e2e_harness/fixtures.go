package e2e_harness

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/markchipman/cofoundry"
	"github.com/markchipman/cofoundry/internal"
	"github.com/markchipman/cofoundry/internal/export"
)

// Definitions used by the end-to-end suite.
var Definitions = []cofoundry.CustomEntityDefinition{
	{
		Code:                   "BLGPST",
		Name:                   "Blog Post",
		NamePlural:             "Blog Posts",
		ForceUrlSlugUniqueness: true,
		AutoGenerateUrlSlug:    true,
	},
	{
		Code:       "FAQITM",
		Name:       "FAQ",
		NamePlural: "FAQs",
		Ordering:   cofoundry.OrderingFull,
	},
}

// ApplySchema creates the custom entity tables through database/sql, the
// same statements init-db runs through pgx.
func ApplySchema(ctx context.Context, db *sql.DB, names cofoundry.TableNames) error {
	for _, stmt := range internal.PostgresSchemaDDL(names.WithDefaults()) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// CountRows returns the row count of table.
func CountRows(ctx context.Context, db *sql.DB, table string) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, fmt.Sprintf(`SELECT count(*) FROM %q`, table)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// ExportConfig points the exporter at the harness rustfs container.
func (h *TestHarness) ExportConfig(bucket string) cofoundry.ExportConfig {
	cfg := cofoundry.DefaultConfig().Export
	cfg.Bucket = bucket
	cfg.Endpoint = h.S3Endpoint
	cfg.AccessKeyID = S3AccessKey
	cfg.SecretAccessKey = S3SecretKey
	cfg.UsePathStyle = true
	return cfg
}

// NewBucket returns an S3 client for the harness and creates bucket.
func (h *TestHarness) NewBucket(ctx context.Context, bucket string) (*s3.Client, error) {
	client, err := export.NewS3Client(ctx, h.ExportConfig(bucket))
	if err != nil {
		return nil, err
	}
	if err := export.EnsureBucket(ctx, client, bucket); err != nil {
		return nil, err
	}
	return client, nil
}

// GetObject reads a whole object.
func GetObject(ctx context.Context, client *s3.Client, bucket, key string) ([]byte, error) {
	out, err := client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
