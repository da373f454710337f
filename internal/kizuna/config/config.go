// Package config loads Kizuna's runtime configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables. Secrets are never read from the file; the embedder
// API key is taken from the environment variable named by
// embedder.api_key_env.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bdobrica/Kizuna/common/environment"
)

// Store backends.
const (
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Embedder providers.
const (
	EmbedderHash   = "hash"
	EmbedderOpenAI = "openai"
)

// Environment variable names.
const (
	EnvStore         = "KIZUNA_STORE"
	EnvDatabasePath  = "KIZUNA_DATABASE_PATH"
	EnvPostgresDSN   = "KIZUNA_POSTGRES_DSN"
	EnvEmbedder      = "KIZUNA_EMBEDDER"
	EnvEmbedCacheMax = "KIZUNA_EMBED_CACHE_MAX_COST"
	EnvLogLevel      = "KIZUNA_LOG_LEVEL"
	EnvLogFormat     = "KIZUNA_LOG_FORMAT"

	DefaultAPIKeyEnv = "KIZUNA_OPENAI_API_KEY"
)

// Config is the full runtime configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Log      LogConfig      `yaml:"log"`
}

// StoreConfig selects and configures the memory backend.
type StoreConfig struct {
	// Backend is "sqlite" (default), "memory" or "postgres".
	Backend     string `yaml:"backend"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// EmbedderConfig configures how memory content is embedded.
type EmbedderConfig struct {
	// Provider is "hash" (default, offline) or "openai".
	Provider   string        `yaml:"provider"`
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	APIKeyEnv  string        `yaml:"api_key_env"`
	Dimensions int           `yaml:"dimensions"`
	Timeout    time.Duration `yaml:"timeout"`

	// CacheMaxCost bounds the embedding cache in bytes. 0 disables it.
	CacheMaxCost int64 `yaml:"cache_max_cost"`

	// APIKey is resolved from the APIKeyEnv variable by Load.
	APIKey string `yaml:"-"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend:    BackendSQLite,
			SQLitePath: "./kizuna.db",
		},
		Embedder: EmbedderConfig{
			Provider:     EmbedderHash,
			APIKeyEnv:    DefaultAPIKeyEnv,
			CacheMaxCost: 16 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Store.Backend = environment.StringOr(EnvStore, c.Store.Backend)
	c.Store.SQLitePath = environment.StringOr(EnvDatabasePath, c.Store.SQLitePath)
	c.Store.PostgresDSN = environment.StringOr(EnvPostgresDSN, c.Store.PostgresDSN)
	c.Embedder.Provider = environment.StringOr(EnvEmbedder, c.Embedder.Provider)
	c.Embedder.CacheMaxCost = environment.Int64Or(EnvEmbedCacheMax, c.Embedder.CacheMaxCost)
	c.Log.Level = environment.StringOr(EnvLogLevel, c.Log.Level)
	c.Log.Format = environment.StringOr(EnvLogFormat, c.Log.Format)

	if c.Embedder.APIKeyEnv == "" {
		c.Embedder.APIKeyEnv = DefaultAPIKeyEnv
	}
	c.Embedder.APIKey = environment.StringOr(c.Embedder.APIKeyEnv, "")

	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	c.Embedder.Provider = strings.ToLower(strings.TrimSpace(c.Embedder.Provider))
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
		}
	case BackendPostgres:
		if c.Store.PostgresDSN == "" {
			errs = append(errs, fmt.Errorf("store.postgres_dsn (or %s) is required for the postgres backend", EnvPostgresDSN))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not one of sqlite, memory, postgres", c.Store.Backend))
	}

	switch c.Embedder.Provider {
	case EmbedderHash:
	case EmbedderOpenAI:
		if c.Embedder.APIKey == "" {
			errs = append(errs, fmt.Errorf("embedder provider openai needs an API key in %s", c.Embedder.APIKeyEnv))
		}
	default:
		errs = append(errs, fmt.Errorf("embedder.provider %q is not one of hash, openai", c.Embedder.Provider))
	}

	if c.Embedder.CacheMaxCost < 0 {
		errs = append(errs, fmt.Errorf("embedder.cache_max_cost must not be negative, got %d", c.Embedder.CacheMaxCost))
	}
	if c.Embedder.Dimensions < 0 {
		errs = append(errs, fmt.Errorf("embedder.dimensions must not be negative, got %d", c.Embedder.Dimensions))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
