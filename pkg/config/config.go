package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for siloforge-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Oracle configuration (LLM re-ranking, optional)
	Oracle OracleConfig `yaml:"oracle"`

	// Engine limits and thresholds
	Engine EngineConfig `yaml:"engine"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"siloforge"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"siloforge_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// OracleConfig holds the optional LLM re-ranking endpoint. Suggestion
// generation works without it; when Endpoint is empty the oracle stage is
// skipped.
type OracleConfig struct {
	Endpoint       string        `yaml:"endpoint" env:"ORACLE_ENDPOINT" env-default:""`
	Model          string        `yaml:"model" env:"ORACLE_MODEL" env-default:""`
	APIKey         string        `yaml:"-" env:"ORACLE_API_KEY"` // Secret - not in YAML
	TimeoutSeconds int           `yaml:"timeout_seconds" env:"ORACLE_TIMEOUT_SECONDS" env-default:"20"`
	Timeout        time.Duration `yaml:"-"`
}

// IsAvailable returns true if the oracle endpoint is configured.
func (c *OracleConfig) IsAvailable() bool {
	return c.Endpoint != "" && c.Model != ""
}

// EngineConfig holds audit and suggestion tuning knobs.
type EngineConfig struct {
	// BodyMinWords and BodyMaxWords bound accepted article markup.
	BodyMinWords int `yaml:"body_min_words" env:"ENGINE_BODY_MIN_WORDS" env-default:"200"`
	BodyMaxWords int `yaml:"body_max_words" env:"ENGINE_BODY_MAX_WORDS" env-default:"60000"`

	// MaxSuggestions is the default suggestion count; requests may ask for
	// fewer or more but never above MaxSuggestionsCap.
	MaxSuggestions    int `yaml:"max_suggestions" env:"ENGINE_MAX_SUGGESTIONS" env-default:"5"`
	MaxSuggestionsCap int `yaml:"max_suggestions_cap" env:"ENGINE_MAX_SUGGESTIONS_CAP" env-default:"10"`

	// RateLimitRequests per RateLimitWindowSeconds, enforced per caller on
	// the suggestion endpoint.
	RateLimitRequests      int           `yaml:"rate_limit_requests" env:"ENGINE_RATE_LIMIT_REQUESTS" env-default:"10"`
	RateLimitWindowSeconds int           `yaml:"rate_limit_window_seconds" env:"ENGINE_RATE_LIMIT_WINDOW_SECONDS" env-default:"60"`
	RateLimitWindow        time.Duration `yaml:"-"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// Secrets (PGPASSWORD, ORACLE_API_KEY) must come from environment variables
// (yaml:"-" fields).
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// normalize derives duration fields and validates the engine limits.
func (c *Config) normalize() error {
	if c.Engine.BodyMinWords <= 0 || c.Engine.BodyMaxWords <= c.Engine.BodyMinWords {
		return fmt.Errorf("body word bounds must satisfy 0 < min < max (got %d, %d)",
			c.Engine.BodyMinWords, c.Engine.BodyMaxWords)
	}
	if c.Engine.MaxSuggestionsCap < 1 {
		c.Engine.MaxSuggestionsCap = 1
	}
	if c.Engine.MaxSuggestions < 1 {
		c.Engine.MaxSuggestions = 1
	}
	if c.Engine.MaxSuggestions > c.Engine.MaxSuggestionsCap {
		c.Engine.MaxSuggestions = c.Engine.MaxSuggestionsCap
	}
	if c.Engine.RateLimitRequests <= 0 {
		return fmt.Errorf("rate_limit_requests must be positive (got %d)", c.Engine.RateLimitRequests)
	}
	if c.Engine.RateLimitWindowSeconds <= 0 {
		return fmt.Errorf("rate_limit_window_seconds must be positive (got %d)", c.Engine.RateLimitWindowSeconds)
	}
	c.Engine.RateLimitWindow = time.Duration(c.Engine.RateLimitWindowSeconds) * time.Second
	if c.Oracle.TimeoutSeconds <= 0 {
		c.Oracle.TimeoutSeconds = 20
	}
	c.Oracle.Timeout = time.Duration(c.Oracle.TimeoutSeconds) * time.Second
	return nil
}

// ConnectionString returns a PostgreSQL connection string. The host is
// rewritten for Docker so a containerized engine can reach a database on the
// host machine.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		ResolveHostForDocker(c.Host), c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
