// Package config loads the YAML configuration file shared by the recall
// commands. Values left out of the file keep their defaults; command-line
// flags override both.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/chunking"
	"github.com/poiesic/recall/core"
	"gopkg.in/yaml.v3"
)

// Backend names accepted in store.backend.
const (
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// DefaultFileName is looked up in the working directory by LoadDefault.
const DefaultFileName = "recall.yaml"

// StoreConfig selects the storage backend.
type StoreConfig struct {
	Backend    string        `yaml:"backend"`
	BadgerPath string        `yaml:"badger_path,omitempty"`
	RedisURL   string        `yaml:"redis_url,omitempty"`
	TTL        time.Duration `yaml:"ttl"`
	Index      string        `yaml:"index"`
}

// AIConfig configures the OpenAI-compatible services.
type AIConfig struct {
	Host               string  `yaml:"host,omitempty"`
	EmbeddingHost      string  `yaml:"embedding_host,omitempty"`
	GenerationHost     string  `yaml:"generation_host,omitempty"`
	EmbeddingModel     string  `yaml:"embedding_model"`
	EmbeddingDimension int     `yaml:"embedding_dimension"`
	GenerationModel    string  `yaml:"generation_model"`
	APIKeyEnv          string  `yaml:"api_key_env"`
	Temperature        float64 `yaml:"temperature"`
}

// ChunkingConfig configures the token window splitter.
type ChunkingConfig struct {
	Encoding  string `yaml:"encoding"`
	MaxTokens int    `yaml:"max_tokens"`
	Overlap   int    `yaml:"overlap"`
}

// PipelineConfig configures the conversation pipeline.
type PipelineConfig struct {
	Mode         string        `yaml:"mode"`
	TopK         int           `yaml:"top_k"`
	HistoryLimit int           `yaml:"history_limit"`
	CallTimeout  time.Duration `yaml:"call_timeout"`
}

// IngestionConfig configures batch ingestion.
type IngestionConfig struct {
	Workers     int `yaml:"workers"`
	MaxAttempts int `yaml:"max_attempts"`
}

// File is the root of the configuration file.
type File struct {
	Store     StoreConfig     `yaml:"store"`
	AI        AIConfig        `yaml:"ai"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Ingestion IngestionConfig `yaml:"ingestion"`
}

// Default returns the built-in configuration.
func Default() *File {
	return &File{
		Store: StoreConfig{
			Backend:    BackendBadger,
			BadgerPath: "recall-data",
			TTL:        time.Hour,
			Index:      core.DefaultIndexName,
		},
		AI: AIConfig{
			Host:               ai.DefaultHost,
			EmbeddingModel:     ai.DefaultEmbeddingModel,
			EmbeddingDimension: ai.DefaultEmbeddingDimension,
			GenerationModel:    ai.DefaultGenerationModel,
			APIKeyEnv:          "OPENAI_API_KEY",
			Temperature:        ai.DefaultTemperature,
		},
		Chunking: ChunkingConfig{
			Encoding:  chunking.DefaultEncoding,
			MaxTokens: chunking.DefaultMaxTokens,
			Overlap:   chunking.DefaultOverlap,
		},
		Pipeline: PipelineConfig{
			Mode:         "retrieval",
			TopK:         1,
			HistoryLimit: 5,
			CallTimeout:  30 * time.Second,
		},
		Ingestion: IngestionConfig{
			Workers:     1,
			MaxAttempts: 3,
		},
	}
}

// Load reads path on top of Default. A missing file yields the defaults.
func Load(path string) (*File, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrConfiguration, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault tries ./recall.yaml, then ~/.config/recall/recall.yaml.
// It returns the path it used, or "" when falling back to the defaults.
func LoadDefault() (*File, string, error) {
	candidates := []string{DefaultFileName}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "recall", DefaultFileName))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			cfg, err := Load(path)
			return cfg, path, err
		}
	}
	return Default(), "", nil
}

// Save writes cfg to path, creating parent directories.
func Save(path string, cfg *File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports the first invalid setting.
func (f *File) Validate() error {
	switch f.Store.Backend {
	case BackendBadger:
		if f.Store.BadgerPath == "" {
			return fmt.Errorf("%w: store.badger_path is required for the badger backend", core.ErrConfiguration)
		}
	case BackendRedis:
		if f.Store.RedisURL == "" {
			return fmt.Errorf("%w: store.redis_url is required for the redis backend", core.ErrConfiguration)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("%w: unknown store.backend %q", core.ErrConfiguration, f.Store.Backend)
	}
	if f.Store.TTL <= 0 {
		return fmt.Errorf("%w: store.ttl must be positive", core.ErrConfiguration)
	}
	if f.Store.Index == "" {
		return fmt.Errorf("%w: store.index is required", core.ErrConfiguration)
	}
	if f.AI.EmbeddingDimension <= 0 {
		return fmt.Errorf("%w: ai.embedding_dimension must be positive", core.ErrConfiguration)
	}
	if f.Chunking.MaxTokens <= 0 || f.Chunking.Overlap < 0 || f.Chunking.Overlap >= f.Chunking.MaxTokens {
		return fmt.Errorf("%w: chunking.overlap must be in [0, max_tokens)", core.ErrConfiguration)
	}
	if f.Pipeline.TopK < 1 || f.Pipeline.HistoryLimit < 1 {
		return fmt.Errorf("%w: pipeline.top_k and pipeline.history_limit must be at least 1", core.ErrConfiguration)
	}
	if f.Ingestion.Workers < 1 || f.Ingestion.MaxAttempts < 1 {
		return fmt.Errorf("%w: ingestion.workers and ingestion.max_attempts must be at least 1", core.ErrConfiguration)
	}
	return nil
}

// IndexSpec returns the vector index described by the file.
func (f *File) IndexSpec() core.IndexSpec {
	return core.IndexSpec{
		Name:      f.Store.Index,
		Dimension: f.AI.EmbeddingDimension,
		Metric:    core.MetricCosine,
	}
}

// AIConfig builds an ai.Config. The API key is read from the environment
// variable named by ai.api_key_env.
func (f *File) AIConfig() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithEmbeddingModel(f.AI.EmbeddingModel),
		ai.WithGenerationModel(f.AI.GenerationModel),
		ai.WithTemperature(f.AI.Temperature),
	}
	if f.AI.Host != "" {
		opts = append(opts, ai.WithHost(f.AI.Host))
	}
	if f.AI.EmbeddingHost != "" {
		opts = append(opts, ai.WithEmbeddingHost(f.AI.EmbeddingHost))
	}
	if f.AI.GenerationHost != "" {
		opts = append(opts, ai.WithGenerationHost(f.AI.GenerationHost))
	}
	if f.AI.APIKeyEnv != "" {
		opts = append(opts, ai.WithAPIKey(os.Getenv(f.AI.APIKeyEnv)))
	}
	return ai.NewConfig(opts...)
}
