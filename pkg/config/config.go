package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for askdb-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:""`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Query engine configuration
	Engine EngineConfig `yaml:"engine"`

	// Language model configuration
	LLM LLMConfig `yaml:"llm"`

	// Datasource registry configuration
	Registry RegistryConfig `yaml:"registry"`

	// Registry store database (PostgreSQL), used when registry.store=postgres
	Database DatabaseConfig `yaml:"database"`
}

// EngineConfig holds federated execution limits.
type EngineConfig struct {
	// DBPath is the primary embedded DuckDB file. Empty means in-memory.
	DBPath string `yaml:"db_path" env:"ENGINE_DB_PATH" env-default:""`
	// PrimaryDatasourceID is the registry ID whose tables live in the
	// primary database and keep their bare names as aliases.
	PrimaryDatasourceID string `yaml:"primary_datasource_id" env:"ENGINE_PRIMARY_DATASOURCE_ID" env-default:"main"`
	// MaxRows is the hard row cap applied to every query result.
	MaxRows int `yaml:"max_rows" env:"ENGINE_MAX_ROWS" env-default:"500"`
	// QueryTimeoutMS is the cooperative execution budget in milliseconds.
	QueryTimeoutMS int `yaml:"query_timeout_ms" env:"ENGINE_QUERY_TIMEOUT_MS" env-default:"15000"`
	// SnapshotBatchSize is the number of rows copied per batch when
	// snapshotting a remote table.
	SnapshotBatchSize int `yaml:"snapshot_batch_size" env:"ENGINE_SNAPSHOT_BATCH_SIZE" env-default:"500"`
	// SnapshotRowCap is the per-table row limit for remote snapshots.
	SnapshotRowCap int `yaml:"snapshot_row_cap" env:"ENGINE_SNAPSHOT_ROW_CAP" env-default:"50000"`
	// DrilldownRowCap bounds drill-down detail queries.
	DrilldownRowCap int `yaml:"drilldown_row_cap" env:"ENGINE_DRILLDOWN_ROW_CAP" env-default:"200"`
}

// LLMConfig selects and configures the language model backend.
type LLMConfig struct {
	// Provider is one of "openai", "anthropic", or "none". With "none" the
	// engine runs on the rule-based generator alone.
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"none"`
	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:""`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:""`
	APIKey   string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML
	// MaxHistoryTurns bounds how many conversation turns the prompt carries.
	MaxHistoryTurns int `yaml:"max_history_turns" env:"LLM_MAX_HISTORY_TURNS" env-default:"6"`
}

// RegistryConfig holds datasource registry settings.
type RegistryConfig struct {
	// Store is "memory" or "postgres".
	Store string `yaml:"store" env:"REGISTRY_STORE" env-default:"memory"`
	// BuiltinsPath is a YAML manifest of built-in datasources.
	BuiltinsPath string `yaml:"builtins_path" env:"REGISTRY_BUILTINS_PATH" env-default:"datasources.yaml"`
	// RulesPath is a YAML file holding the fallback-generator keyword rules
	// and the drill-down field rules.
	RulesPath string `yaml:"rules_path" env:"REGISTRY_RULES_PATH" env-default:"rules.yaml"`
}

// DatabaseConfig holds PostgreSQL configuration for the registry store.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"askdb"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"askdb_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"10"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the connection string in URL form, as the migration tooling
// expects.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User), url.QueryEscape(c.Password),
		c.Host, c.Port, c.Database, c.SSLMode)
}

// Load reads configuration from config.yaml with environment variable
// overrides. A missing config.yaml is not an error; the config then comes
// from environment variables and defaults alone. The version parameter is
// injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	err := cleanenv.ReadConfig("config.yaml", cfg)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, os.ErrNotExist) {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic", "none":
	default:
		return fmt.Errorf("invalid llm provider %q (want openai, anthropic, or none)", c.LLM.Provider)
	}
	switch c.Registry.Store {
	case "memory", "postgres":
	default:
		return fmt.Errorf("invalid registry store %q (want memory or postgres)", c.Registry.Store)
	}
	if c.Engine.MaxRows < 1 {
		return fmt.Errorf("engine max_rows must be >= 1")
	}
	if c.Engine.QueryTimeoutMS < 1 {
		return fmt.Errorf("engine query_timeout_ms must be >= 1")
	}
	if c.Engine.SnapshotBatchSize < 1 {
		return fmt.Errorf("engine snapshot_batch_size must be >= 1")
	}
	return nil
}
