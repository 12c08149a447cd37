package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the recommender.
type Config struct {
	Source    SourceConfig    `yaml:"source"`
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Recommend RecommendConfig `yaml:"recommend"`
	Serve     ServeConfig     `yaml:"serve"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SourceConfig points at the SQLite database holding book records.
type SourceConfig struct {
	Path  string `yaml:"path" validate:"required"`
	Table string `yaml:"table" validate:"required"`
}

// StoreConfig holds embedding artifact configuration.
type StoreConfig struct {
	Path        string `yaml:"path" validate:"required"`
	Compression string `yaml:"compression" validate:"oneof=none zstd"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider" validate:"oneof=openai deepseek jina ollama hashing"` // "openai", "deepseek", "jina", "ollama", "hashing"
	Model             string  `yaml:"model"`                                                          // empty means "whatever the artifact was built with"
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"` // Environment variable for API key
	Dimension         int     `yaml:"dimension" validate:"gte=0"` // 0 = infer from model
	BatchSize         int     `yaml:"batch_size" validate:"gt=0"`
	Concurrency       int     `yaml:"concurrency" validate:"gt=0"`
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"` // 0 = unlimited
}

// RecommendConfig holds query engine configuration.
type RecommendConfig struct {
	TopK             int           `yaml:"top_k" validate:"gt=0"`
	CandidatePool    int           `yaml:"candidate_pool" validate:"gt=0"`
	KeywordMinLength int           `yaml:"keyword_min_length" validate:"gte=1"`
	CacheSize        int           `yaml:"cache_size" validate:"gte=0"` // 0 disables the query cache
	CacheTTL         time.Duration `yaml:"cache_ttl"`
}

// ServeConfig holds HTTP serving configuration.
type ServeConfig struct {
	Addr           string   `yaml:"addr" validate:"required"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `yaml:"format" validate:"oneof=json console"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Path:  filepath.Join("storage", "library.db"),
			Table: "books",
		},
		Store: StoreConfig{
			Path:        filepath.Join("recommender", "embeddings.db"),
			Compression: "zstd",
		},
		Embedding: EmbeddingConfig{
			Provider:    "ollama",
			Model:       "all-minilm",
			APIKeyEnv:   "OPENAI_API_KEY",
			BatchSize:   64,
			Concurrency: 4,
		},
		Recommend: RecommendConfig{
			TopK:             5,
			CandidatePool:    50,
			KeywordMinLength: 3,
			CacheSize:        256,
			CacheTTL:         5 * time.Minute,
		},
		Serve: ServeConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for bookrec.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "bookrec.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".bookrec", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ArtifactPath returns the embedding artifact path, resolved against dir.
func (c *Config) ArtifactPath(dir string) string {
	return resolve(dir, c.Store.Path)
}

// SourcePath returns the record database path, resolved against dir.
func (c *Config) SourcePath(dir string) string {
	return resolve(dir, c.Source.Path)
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
