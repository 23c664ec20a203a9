// Package config loads docrag configuration from a TOML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultStoreBackend = "memory"
	DefaultEmbedder     = "ollama"
	DefaultMaxChunkSize = 200
	DefaultMaxResults   = 10
)

// Config is the top-level docrag configuration.
type Config struct {
	Store     StoreConfig     `toml:"store"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Ingest    IngestConfig    `toml:"ingest"`
	Search    SearchConfig    `toml:"search"`
	Redis     RedisConfig     `toml:"redis"`
	LogLevel  string          `toml:"log_level"`
}

// StoreConfig selects and configures the vector store backend.
type StoreConfig struct {
	// Backend is one of "memory", "sqlite", "postgres".
	Backend string `toml:"backend"`

	// DataDir holds the sqlite database file.
	DataDir string `toml:"data_dir"`

	// PostgresURL is the connection string for the postgres backend.
	PostgresURL string `toml:"postgres_url"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is one of "ollama", "openai".
	Provider string `toml:"provider"`

	// Model overrides the provider's default model.
	Model string `toml:"model"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `toml:"base_url"`

	// APIKey authenticates against the OpenAI API. The
	// DOCRAG_OPENAI_API_KEY environment variable takes precedence.
	APIKey string `toml:"api_key"`

	// Dimensions overrides the provider's default vector size.
	Dimensions int `toml:"dimensions"`

	// Timeout for embedding requests.
	Timeout duration `toml:"timeout"`
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	// Dir is the PDF directory to ingest from.
	Dir string `toml:"dir"`

	// MaxChunkSize is the chunk size limit in characters.
	MaxChunkSize int `toml:"max_chunk_size"`

	// WatchDebounce is how long watch mode waits after the last
	// filesystem event before re-ingesting.
	WatchDebounce duration `toml:"watch_debounce"`
}

// SearchConfig tunes the search surface.
type SearchConfig struct {
	// MaxResults is the default result limit.
	MaxResults int `toml:"max_results"`
}

// RedisConfig enables the distributed ingestion lock. When Addr is
// empty the lock is process-local only.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// duration wraps time.Duration so TOML values like "30s" parse.
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(parsed)
	return nil
}

func (d duration) Duration() time.Duration {
	return time.Duration(d)
}

// DefaultPath returns the default config file location,
// ~/.docrag/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".docrag", "config.toml"), nil
}

// Load reads a TOML config file, fills in defaults, and applies
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Store:     StoreConfig{Backend: DefaultStoreBackend},
		Embedding: EmbeddingConfig{Provider: DefaultEmbedder},
		Ingest:    IngestConfig{MaxChunkSize: DefaultMaxChunkSize},
		Search:    SearchConfig{MaxResults: DefaultMaxResults},
		LogLevel:  "info",
	}

	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No config file yet - run on defaults.
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets environment variables override file values, which
// keeps secrets out of the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("DOCRAG_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("DOCRAG_DATA_DIR"); v != "" {
		c.Store.DataDir = v
	}
	if v := os.Getenv("DOCRAG_POSTGRES_URL"); v != "" {
		c.Store.PostgresURL = v
	}
	if v := os.Getenv("DOCRAG_EMBEDDING_PROVIDER"); v != "" {
		c.Embedding.Provider = v
	}
	if v := os.Getenv("DOCRAG_EMBEDDING_MODEL"); v != "" {
		c.Embedding.Model = v
	}
	if v := os.Getenv("DOCRAG_OPENAI_API_KEY"); v != "" {
		c.Embedding.APIKey = v
	}
	if v := os.Getenv("DOCRAG_OLLAMA_URL"); v != "" && c.Embedding.Provider == "ollama" {
		c.Embedding.BaseURL = v
	}
	if v := os.Getenv("DOCRAG_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("DOCRAG_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("DOCRAG_MAX_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Ingest.MaxChunkSize = n
		}
	}
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.Store.Backend == "postgres" && c.Store.PostgresURL == "" {
		return fmt.Errorf("config: postgres backend requires store.postgres_url")
	}

	switch c.Embedding.Provider {
	case "ollama", "openai":
	default:
		return fmt.Errorf("config: unknown embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Provider == "openai" && c.Embedding.APIKey == "" {
		return fmt.Errorf("config: openai provider requires embedding.api_key or DOCRAG_OPENAI_API_KEY")
	}

	if c.Ingest.MaxChunkSize <= 0 {
		return fmt.Errorf("config: ingest.max_chunk_size must be positive")
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("config: search.max_results must be positive")
	}
	return nil
}
