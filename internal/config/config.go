package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/codenerd-labs/conversync/internal/logging"

	"gopkg.in/yaml.v3"
)

// Config holds all conversync configuration.
type Config struct {
	Storage        StorageConfig        `yaml:"storage"`
	Reconstruction ReconstructionConfig `yaml:"reconstruction"`
	Indexing       IndexingConfig       `yaml:"indexing"`
	Embedding      EmbeddingConfig      `yaml:"embedding"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// StorageConfig controls the Path Resolver and on-disk layout.
type StorageConfig struct {
	Roots        []string `yaml:"roots"`         // explicit roots; empty = auto-detect
	CacheDirname string   `yaml:"cache_dirname"` // name of the skeleton cache dir under each root
	DatabasePath string   `yaml:"database_path"` // sqlite-vec database file
}

// ReconstructionConfig controls the Hierarchy Reconstruction Engine.
type ReconstructionConfig struct {
	BatchSize      int     `yaml:"batch_size"`
	MinConfidence  float64 `yaml:"min_confidence"`
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
	TemporalWindow string  `yaml:"temporal_window"`
}

// IndexingConfig controls the Indexing Pipeline.
type IndexingConfig struct {
	TickInterval             string `yaml:"tick_interval"`
	ConsistencyCheckInterval string `yaml:"consistency_check_interval"`
	MaxQueueBeforeWarning    int    `yaml:"max_queue_before_warning"`
}

// EmbeddingConfig configures the pluggable embedding backend.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"` // "ollama" or "genai"
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
	GenAIModel     string `yaml:"genai_model"`
	GenAIAPIKey    string `yaml:"genai_api_key,omitempty"`
	// ContentKind: what the embedded text is — "skeleton" (stored task
	// summaries, the pipeline's case), "instruction", or "query".
	ContentKind string `yaml:"content_kind,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Roots:        nil,
			CacheDirname: ".skeletons",
			DatabasePath: "data/conversync.db",
		},
		Reconstruction: ReconstructionConfig{
			BatchSize:      20,
			MinConfidence:  0.3,
			FuzzyThreshold: 0.2,
			TemporalWindow: "5m",
		},
		Indexing: IndexingConfig{
			TickInterval:             "600ms",
			ConsistencyCheckInterval: "24h",
			MaxQueueBeforeWarning:    1000,
		},
		Embedding: EmbeddingConfig{
			Provider:       "ollama",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
			GenAIModel:     "gemini-embedding-001",
			ContentKind:    "skeleton",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults if the
// file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.BootDebug("loading config from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Boot("config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		logging.BootError("failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		logging.BootError("failed to parse config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	logging.Boot("config loaded: embedding_provider=%s roots=%d", cfg.Embedding.Provider, len(cfg.Storage.Roots))

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if roots := os.Getenv("CONVERSYNC_STORAGE_ROOTS"); roots != "" {
		c.Storage.Roots = strings.Split(roots, string(os.PathListSeparator))
	}
	if path := os.Getenv("CONVERSYNC_DB"); path != "" {
		c.Storage.DatabasePath = path
	}

	if key := os.Getenv("GENAI_API_KEY"); key != "" {
		c.Embedding.GenAIAPIKey = key
		if c.Embedding.Provider == "" || c.Embedding.Provider == "ollama" {
			c.Embedding.Provider = "genai"
		}
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Embedding.GenAIAPIKey = key
		if c.Embedding.Provider == "" || c.Embedding.Provider == "ollama" {
			c.Embedding.Provider = "genai"
		}
	}
	if endpoint := os.Getenv("OLLAMA_ENDPOINT"); endpoint != "" {
		c.Embedding.OllamaEndpoint = endpoint
	}
	if model := os.Getenv("OLLAMA_EMBEDDING_MODEL"); model != "" {
		c.Embedding.OllamaModel = model
	}
}

// GetTickInterval returns the indexing pipeline's tick interval.
func (c *Config) GetTickInterval() time.Duration {
	d, err := time.ParseDuration(c.Indexing.TickInterval)
	if err != nil {
		return 600 * time.Millisecond
	}
	return d
}

// GetConsistencyCheckInterval returns the reconciliation loop's interval.
func (c *Config) GetConsistencyCheckInterval() time.Duration {
	d, err := time.ParseDuration(c.Indexing.ConsistencyCheckInterval)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// GetTemporalWindow returns the hierarchy engine's temporal-proximity fallback window.
func (c *Config) GetTemporalWindow() time.Duration {
	d, err := time.ParseDuration(c.Reconstruction.TemporalWindow)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// ValidEmbeddingProviders lists all supported embedding providers.
var ValidEmbeddingProviders = []string{"ollama", "genai"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidEmbeddingProviders {
		if c.Embedding.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid embedding provider: %s (valid: %v)", c.Embedding.Provider, ValidEmbeddingProviders)
	}
	if c.Embedding.Provider == "genai" && c.Embedding.GenAIAPIKey == "" {
		return fmt.Errorf("genai embedding provider configured without GENAI_API_KEY/GEMINI_API_KEY")
	}
	if c.Reconstruction.BatchSize <= 0 {
		return fmt.Errorf("reconstruction.batch_size must be positive, got %d", c.Reconstruction.BatchSize)
	}
	return nil
}
