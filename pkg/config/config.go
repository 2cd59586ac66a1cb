package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for sitewire-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (optional second cache tier)
	Redis RedisConfig `yaml:"redis"`

	// Progress cache behavior
	Cache CacheConfig `yaml:"cache"`

	// Proposal import limits
	Import ImportConfig `yaml:"import"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"sitewire"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"sitewire_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// URL builds a PostgreSQL connection URL from the config fields.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// RedisConfig holds Redis connection configuration.
// An empty host disables the Redis cache tier entirely.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// CacheConfig controls the progress cache freshness window.
type CacheConfig struct {
	// FreshnessWindowSeconds is how long a computed milestone bundle is
	// served without triggering a background recompute.
	FreshnessWindowSeconds int `yaml:"freshness_window_seconds" env:"CACHE_FRESHNESS_WINDOW_SECONDS" env-default:"300"`
}

// FreshnessWindow returns the freshness window as a duration.
func (c *CacheConfig) FreshnessWindow() time.Duration {
	return time.Duration(c.FreshnessWindowSeconds) * time.Second
}

// ImportConfig holds proposal import limits.
type ImportConfig struct {
	// MaxRows caps a single proposal import; larger files are rejected
	// before the delete phase can run.
	MaxRows int `yaml:"max_rows" env:"IMPORT_MAX_ROWS" env-default:"5000"`
	// MaxQuantityPerRow caps instance expansion for a single row.
	MaxQuantityPerRow int `yaml:"max_quantity_per_row" env:"IMPORT_MAX_QUANTITY_PER_ROW" env-default:"500"`
}

// Load reads configuration from config.yaml (if present) and environment
// variables. Environment variables take precedence.
func Load(version string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment config: %w", err)
		}
	}

	cfg.Version = version

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration invariants that cleanenv defaults cannot express.
func (c *Config) Validate() error {
	if c.Cache.FreshnessWindowSeconds <= 0 {
		return fmt.Errorf("cache freshness window must be positive, got %d", c.Cache.FreshnessWindowSeconds)
	}
	if c.Import.MaxRows <= 0 {
		return fmt.Errorf("import max rows must be positive, got %d", c.Import.MaxRows)
	}
	if c.Import.MaxQuantityPerRow <= 0 {
		return fmt.Errorf("import max quantity per row must be positive, got %d", c.Import.MaxQuantityPerRow)
	}
	return nil
}
