package cofoundry

import (
	"fmt"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config consolidates settings for the store, dispatch and export layers
type Config struct {
	Database  DatabaseConfig  `json:"database" envPrefix:"DB_"`
	Query     QueryConfig     `json:"query" envPrefix:"QUERY_"`
	Execution ExecutionConfig `json:"execution" envPrefix:"EXEC_"`
	Entity    EntityConfig    `json:"entity" envPrefix:"ENTITY_"`
	Logging   LoggingConfig   `json:"logging" envPrefix:"LOG_"`
	Export    ExportConfig    `json:"export" envPrefix:"EXPORT_"`
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host            string        `json:"host" env:"HOST"`
	Port            int           `json:"port" env:"PORT"`
	Database        string        `json:"database" env:"NAME"`
	Username        string        `json:"username" env:"USER"`
	Password        string        `json:"-" env:"PASSWORD"`
	SSLMode         string        `json:"sslMode" env:"SSL_MODE"`
	MaxConnections  int           `json:"maxConnections" env:"MAX_CONNECTIONS"`
	MinConnections  int           `json:"minConnections" env:"MIN_CONNECTIONS"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" env:"CONN_MAX_LIFETIME"`
	ConnMaxIdleTime time.Duration `json:"connMaxIdleTime" env:"CONN_MAX_IDLE_TIME"`
	Timeout         time.Duration `json:"timeout" env:"TIMEOUT"`
	// UseIAMAuth replaces Password with a short-lived Aurora DSQL token.
	UseIAMAuth bool       `json:"useIamAuth" env:"USE_IAM_AUTH"`
	Region     string     `json:"region" env:"REGION"`
	TableNames TableNames `json:"tableNames" envPrefix:"TABLE_"`
}

// TableNames overrides the default table names.
type TableNames struct {
	Definitions string `json:"definitions" env:"DEFINITIONS"`
	Entities    string `json:"entities" env:"ENTITIES"`
	Versions    string `json:"versions" env:"VERSIONS"`
	PageBlocks  string `json:"pageBlocks" env:"PAGE_BLOCKS"`
}

// WithDefaults fills empty names with the defaults.
func (t TableNames) WithDefaults() TableNames {
	if t.Definitions == "" {
		t.Definitions = "custom_entity_definition"
	}
	if t.Entities == "" {
		t.Entities = "custom_entity"
	}
	if t.Versions == "" {
		t.Versions = "custom_entity_version"
	}
	if t.PageBlocks == "" {
		t.PageBlocks = "custom_entity_version_page_block"
	}
	return t
}

// QueryConfig contains paging settings
type QueryConfig struct {
	DefaultPageSize int `json:"defaultPageSize" env:"DEFAULT_PAGE_SIZE"`
	MaxPageSize     int `json:"maxPageSize" env:"MAX_PAGE_SIZE"`
}

// ExecutionConfig contains query and command dispatch settings
type ExecutionConfig struct {
	Timeout       time.Duration `json:"timeout" env:"TIMEOUT"`
	SlowThreshold time.Duration `json:"slowThreshold" env:"SLOW_THRESHOLD"`
	EnableTracing bool          `json:"enableTracing" env:"ENABLE_TRACING"`
	OTLPEndpoint  string        `json:"otlpEndpoint" env:"OTLP_ENDPOINT"`
	ServiceName   string        `json:"serviceName" env:"SERVICE_NAME"`
}

// EntityConfig contains custom entity settings
type EntityConfig struct {
	// DefinitionDirectory holds one JSON file per custom entity definition.
	DefinitionDirectory string `json:"definitionDirectory" env:"DEFINITION_DIR"`
	MaxUrlSlugLength    int    `json:"maxUrlSlugLength" env:"MAX_URL_SLUG_LENGTH"`
	MaxTitleLength      int    `json:"maxTitleLength" env:"MAX_TITLE_LENGTH"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `json:"level" env:"LEVEL"`
	Format string `json:"format" env:"FORMAT"`
}

// ExportConfig contains S3 snapshot export settings
type ExportConfig struct {
	Bucket          string `json:"bucket" env:"BUCKET"`
	Prefix          string `json:"prefix" env:"PREFIX"`
	Region          string `json:"region" env:"REGION"`
	Endpoint        string `json:"endpoint" env:"ENDPOINT"`
	AccessKeyID     string `json:"-" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `json:"-" env:"SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `json:"usePathStyle" env:"USE_PATH_STYLE"`
	PageSize        int    `json:"pageSize" env:"PAGE_SIZE"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "cofoundry",
			Username:        "postgres",
			SSLMode:         "disable",
			MaxConnections:  25,
			MinConnections:  2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			Timeout:         30 * time.Second,
			Region:          "us-east-1",
			TableNames:      TableNames{}.WithDefaults(),
		},
		Query: QueryConfig{
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Execution: ExecutionConfig{
			Timeout:       30 * time.Second,
			SlowThreshold: 500 * time.Millisecond,
			ServiceName:   "cofoundry",
		},
		Entity: EntityConfig{
			DefinitionDirectory: "definitions",
			MaxUrlSlugLength:    200,
			MaxTitleLength:      200,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Export: ExportConfig{
			Prefix:   "custom-entities",
			Region:   "us-east-1",
			PageSize: 100,
		},
	}
}

// LoadConfigFromEnv layers COFOUNDRY_* environment variables over the
// defaults, e.g. COFOUNDRY_DB_HOST or COFOUNDRY_QUERY_MAX_PAGE_SIZE.
func LoadConfigFromEnv() (*Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "COFOUNDRY_"}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Database.TableNames = cfg.Database.TableNames.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.MaxConnections <= 0 {
		return &ConfigError{Field: "database.maxConnections", Message: "must be greater than 0"}
	}

	if c.Database.MinConnections < 0 || c.Database.MinConnections > c.Database.MaxConnections {
		return &ConfigError{Field: "database.minConnections", Message: "must be between 0 and maxConnections"}
	}

	if c.Database.UseIAMAuth && c.Database.Region == "" {
		return &ConfigError{Field: "database.region", Message: "is required when useIamAuth is set"}
	}

	tables := map[string]string{
		"database.tableNames.definitions": c.Database.TableNames.Definitions,
		"database.tableNames.entities":    c.Database.TableNames.Entities,
		"database.tableNames.versions":    c.Database.TableNames.Versions,
		"database.tableNames.pageBlocks":  c.Database.TableNames.PageBlocks,
	}
	for field, name := range tables {
		if name != "" && !identifierPattern.MatchString(name) {
			return &ConfigError{Field: field, Message: "must be a plain SQL identifier"}
		}
	}

	if c.Query.DefaultPageSize <= 0 {
		return &ConfigError{Field: "query.defaultPageSize", Message: "must be greater than 0"}
	}

	if c.Query.MaxPageSize < c.Query.DefaultPageSize {
		return &ConfigError{Field: "query.maxPageSize", Message: "must be greater than or equal to defaultPageSize"}
	}

	if c.Execution.Timeout < 0 {
		return &ConfigError{Field: "execution.timeout", Message: "must not be negative"}
	}

	if c.Entity.MaxUrlSlugLength <= 0 {
		return &ConfigError{Field: "entity.maxUrlSlugLength", Message: "must be greater than 0"}
	}

	if c.Entity.MaxTitleLength <= 0 {
		return &ConfigError{Field: "entity.maxTitleLength", Message: "must be greater than 0"}
	}

	if c.Export.PageSize <= 0 || c.Export.PageSize > c.Query.MaxPageSize {
		return &ConfigError{Field: "export.pageSize", Message: "must be between 1 and query.maxPageSize"}
	}

	return nil
}

// ConfigError represents a configuration validation error
type ConfigError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ConfigError) Error() string {
	return "config validation error for field '" + e.Field + "': " + e.Message
}
