package cofoundry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Database.Host != "localhost" {
		t.Errorf("Expected database host to be 'localhost', got %s", config.Database.Host)
	}
	if config.Database.Port != 5432 {
		t.Errorf("Expected database port to be 5432, got %d", config.Database.Port)
	}
	if config.Database.TableNames.Entities != "custom_entity" {
		t.Errorf("Expected entity table to be 'custom_entity', got %s", config.Database.TableNames.Entities)
	}
	if config.Query.DefaultPageSize != 20 {
		t.Errorf("Expected default page size to be 20, got %d", config.Query.DefaultPageSize)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"max connections", func(c *Config) { c.Database.MaxConnections = 0 }, "database.maxConnections"},
		{"min connections", func(c *Config) { c.Database.MinConnections = 100 }, "database.minConnections"},
		{"iam region", func(c *Config) { c.Database.UseIAMAuth = true; c.Database.Region = "" }, "database.region"},
		{"table name", func(c *Config) { c.Database.TableNames.Versions = "versions; drop table x" }, "database.tableNames.versions"},
		{"default page size", func(c *Config) { c.Query.DefaultPageSize = 0 }, "query.defaultPageSize"},
		{"max page size", func(c *Config) { c.Query.MaxPageSize = 5 }, "query.maxPageSize"},
		{"timeout", func(c *Config) { c.Execution.Timeout = -time.Second }, "execution.timeout"},
		{"slug length", func(c *Config) { c.Entity.MaxUrlSlugLength = 0 }, "entity.maxUrlSlugLength"},
		{"export page size", func(c *Config) { c.Export.PageSize = 1000 }, "export.pageSize"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("COFOUNDRY_DB_HOST", "db.internal")
	t.Setenv("COFOUNDRY_DB_PORT", "6543")
	t.Setenv("COFOUNDRY_DB_TABLE_ENTITIES", "ce_entity")
	t.Setenv("COFOUNDRY_QUERY_MAX_PAGE_SIZE", "250")
	t.Setenv("COFOUNDRY_EXEC_SLOW_THRESHOLD", "2s")
	t.Setenv("COFOUNDRY_EXPORT_BUCKET", "snapshots")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "ce_entity", cfg.Database.TableNames.Entities)
	assert.Equal(t, "custom_entity_version", cfg.Database.TableNames.Versions)
	assert.Equal(t, 250, cfg.Query.MaxPageSize)
	assert.Equal(t, 2*time.Second, cfg.Execution.SlowThreshold)
	assert.Equal(t, "snapshots", cfg.Export.Bucket)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigFromEnvRejectsInvalid(t *testing.T) {
	t.Setenv("COFOUNDRY_QUERY_DEFAULT_PAGE_SIZE", "0")
	_, err := LoadConfigFromEnv()
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "query.defaultPageSize", cfgErr.Field)
}

func TestTableNamesWithDefaults(t *testing.T) {
	names := TableNames{Entities: "custom"}.WithDefaults()
	assert.Equal(t, "custom", names.Entities)
	assert.Equal(t, "custom_entity_definition", names.Definitions)
	assert.Equal(t, "custom_entity_version_page_block", names.PageBlocks)
}
