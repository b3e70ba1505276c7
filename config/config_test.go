package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, core.IndexSpec{Name: "rag_docs", Dimension: ai.DefaultEmbeddingDimension, Metric: core.MetricCosine}, cfg.IndexSpec())
	assert.Equal(t, time.Hour, cfg.Store.TTL)
	assert.Equal(t, 1, cfg.Pipeline.TopK)
	assert.Equal(t, 5, cfg.Pipeline.HistoryLimit)
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesOnlyGivenFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.yaml")
	data := `
store:
  backend: redis
  redis_url: redis://localhost:6379/0
  ttl: 30m
ai:
  host: http://localhost:11434
  embedding_model: nomic-embed-text
  embedding_dimension: 768
pipeline:
  mode: sentiment
  call_timeout: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Store.TTL)
	assert.Equal(t, "rag_docs", cfg.Store.Index)
	assert.Equal(t, 768, cfg.IndexSpec().Dimension)
	assert.Equal(t, "sentiment", cfg.Pipeline.Mode)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.CallTimeout)
	assert.Equal(t, 1, cfg.Pipeline.TopK)
	assert.Equal(t, ai.DefaultGenerationModel, cfg.AI.GenerationModel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown backend", "store:\n  backend: postgres\n"},
		{"redis without url", "store:\n  backend: redis\n"},
		{"zero ttl", "store:\n  ttl: 0s\n"},
		{"overlap too large", "chunking:\n  max_tokens: 10\n  overlap: 10\n"},
		{"zero top k", "pipeline:\n  top_k: 0\n"},
		{"zero workers", "ingestion:\n  workers: 0\n"},
		{"malformed", "store: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "recall.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			_, err := Load(path)
			assert.ErrorIs(t, err, core.ErrConfiguration)
		})
	}
}

func TestSave_ThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "recall.yaml")
	cfg := Default()
	cfg.Store.Backend = BackendMemory
	cfg.Ingestion.Workers = 4

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestAIConfig(t *testing.T) {
	t.Setenv("RECALL_TEST_KEY", "sk-test")

	cfg := Default()
	cfg.AI.Host = ""
	cfg.AI.EmbeddingHost = "http://embed:8080"
	cfg.AI.GenerationHost = "http://gen:8080/v1"
	cfg.AI.APIKeyEnv = "RECALL_TEST_KEY"

	aiCfg := cfg.AIConfig()
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "http://embed:8080/v1", aiCfg.EmbeddingHost)
	assert.Equal(t, "http://gen:8080/v1", aiCfg.GenerationHost)
	assert.Equal(t, "sk-test", aiCfg.Token())
	assert.Equal(t, ai.DefaultTemperature, aiCfg.Temperature)
}
