// Package config loads and validates the casekb configuration file.
// Configuration lives in a TOML file under the data directory; every
// field has a working default so a fresh install needs no file at all.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pelletier/go-toml/v2"
)

// Default values applied when the config file omits a field.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultHybridWeight = 0.5
	DefaultMetric       = "cosine"
	DefaultProvider     = "hashing"
	DefaultDimensions   = 384
	DefaultResultLimit  = 10
	DefaultConcurrency  = 4
	DefaultListenAddr   = ":8732"
)

// Config is the top-level configuration.
type Config struct {
	// DataDir is where the store, indexes and original copies live.
	// Empty means ~/.casekb.
	DataDir string `toml:"data_dir"`

	Ingest    IngestConfig    `toml:"ingest"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Server    ServerConfig    `toml:"server"`
}

// IngestConfig controls the ingestion pipeline.
type IngestConfig struct {
	// ChunkSize is the chunk length in characters.
	ChunkSize int `toml:"chunk_size"`

	// ChunkOverlap is the overlap between consecutive chunks.
	ChunkOverlap int `toml:"chunk_overlap"`

	// Concurrency bounds parallel extraction during batch ingestion.
	Concurrency int `toml:"concurrency"`
}

// RetrievalConfig controls the query engine.
type RetrievalConfig struct {
	// HybridWeight is the semantic share in hybrid scoring, in [0,1].
	HybridWeight float64 `toml:"hybrid_weight"`

	// Metric selects the vector distance: cosine or euclidean.
	Metric string `toml:"metric"`

	// ResultLimit is the default number of hits when a query gives none.
	ResultLimit int `toml:"result_limit"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	// Provider is one of: openai, ollama, hashing, none.
	Provider string `toml:"provider"`

	// Model overrides the provider's default model.
	Model string `toml:"model"`

	// Dimensions is the vector size fixed at knowledge base creation.
	Dimensions int `toml:"dimensions"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `toml:"base_url"`

	// APIKey authenticates to hosted providers. The OPENAI_API_KEY
	// environment variable takes precedence.
	APIKey string `toml:"api_key"`

	// Timeout is the per-request timeout.
	Timeout time.Duration `toml:"timeout"`

	// RequestsPerSecond caps outgoing embed calls. Zero disables the
	// client-side limit.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `toml:"listen_addr"`
}

// Default returns a configuration with every default applied.
func Default() Config {
	return Config{
		Ingest: IngestConfig{
			ChunkSize:    DefaultChunkSize,
			ChunkOverlap: DefaultChunkOverlap,
			Concurrency:  DefaultConcurrency,
		},
		Retrieval: RetrievalConfig{
			HybridWeight: DefaultHybridWeight,
			Metric:       DefaultMetric,
			ResultLimit:  DefaultResultLimit,
		},
		Embedding: EmbeddingConfig{
			Provider:   DefaultProvider,
			Dimensions: DefaultDimensions,
		},
		Server: ServerConfig{
			ListenAddr: DefaultListenAddr,
		},
	}
}

// Load reads the config file at path, applies defaults for missing
// fields, then environment overrides, and validates the result. A
// missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("getting home directory: %w", err)
		}
		path = filepath.Join(home, ".casekb", "config.toml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
	} else if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyDefaults fills zero values left by a partial config file.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.Ingest.ChunkSize == 0 {
		cfg.Ingest.ChunkSize = def.Ingest.ChunkSize
	}
	if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = def.Ingest.ChunkOverlap
	}
	if cfg.Ingest.Concurrency == 0 {
		cfg.Ingest.Concurrency = def.Ingest.Concurrency
	}
	if cfg.Retrieval.HybridWeight == 0 {
		cfg.Retrieval.HybridWeight = def.Retrieval.HybridWeight
	}
	if cfg.Retrieval.Metric == "" {
		cfg.Retrieval.Metric = def.Retrieval.Metric
	}
	if cfg.Retrieval.ResultLimit == 0 {
		cfg.Retrieval.ResultLimit = def.Retrieval.ResultLimit
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = def.Embedding.Provider
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = def.Embedding.Dimensions
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = def.Server.ListenAddr
	}
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) {
	if v := os.Getenv("CASEKB_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("CASEKB_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("CASEKB_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
}

// Validate checks field ranges and cross-field constraints.
func (c Config) Validate() error {
	if err := validation.ValidateStruct(&c.Ingest,
		validation.Field(&c.Ingest.ChunkSize, validation.Required, validation.Min(1)),
		validation.Field(&c.Ingest.ChunkOverlap, validation.Min(0)),
		validation.Field(&c.Ingest.Concurrency, validation.Min(1)),
	); err != nil {
		return err
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("chunk_overlap must be smaller than chunk_size")
	}

	if err := validation.ValidateStruct(&c.Retrieval,
		validation.Field(&c.Retrieval.HybridWeight, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.Retrieval.Metric, validation.Required, validation.In("cosine", "euclidean")),
		validation.Field(&c.Retrieval.ResultLimit, validation.Min(1)),
	); err != nil {
		return err
	}

	return validation.ValidateStruct(&c.Embedding,
		validation.Field(&c.Embedding.Provider,
			validation.Required, validation.In("openai", "ollama", "hashing", "none")),
		validation.Field(&c.Embedding.Dimensions, validation.Min(1)),
		validation.Field(&c.Embedding.RequestsPerSecond, validation.Min(0.0)),
	)
}

// ResolveDataDir returns the effective data directory.
func (c Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".casekb"), nil
}
