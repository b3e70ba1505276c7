package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poiesic/recall/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI answers /embeddings and /chat/completions like an
// OpenAI-compatible server.
func fakeAPI(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/embeddings"):
			assert.Equal(t, "embed-model", body["model"])
			inputs, _ := body["input"].([]any)
			data := make([]map[string]any, len(inputs))
			for i := range inputs {
				data[i] = map[string]any{"object": "embedding", "index": i, "embedding": []float32{0.1, 0.2, float32(i)}}
			}
			json.NewEncoder(w).Encode(map[string]any{"object": "list", "model": "embed-model", "data": data})
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			assert.Equal(t, "chat-model", body["model"])
			json.NewEncoder(w).Encode(map[string]any{
				"id":     "cmpl-1",
				"object": "chat.completion",
				"model":  "chat-model",
				"choices": []map[string]any{{
					"index":         0,
					"message":       map[string]any{"role": "assistant", "content": "pong"},
					"finish_reason": "stop",
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &paths
}

func testConfig(host string) *ai.Config {
	return ai.NewConfig(
		ai.WithHost(host),
		ai.WithEmbeddingModel("embed-model"),
		ai.WithGenerationModel("chat-model"),
		ai.WithAPIKey("sk-test"),
	)
}

func TestProvider_EmbedAndComplete(t *testing.T) {
	srv, paths := fakeAPI(t)

	provider, err := NewProvider(testConfig(srv.URL))
	require.NoError(t, err)
	defer provider.Close()

	vector, err := provider.Embedder().EmbedText(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0}, vector)

	vectors, err := provider.Embedder().EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, float32(1), vectors[1][2])

	reply, err := provider.Generator().Complete(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", reply)

	for _, p := range *paths {
		assert.True(t, strings.HasPrefix(p, "/v1/"), p)
	}
}

func TestProvider_ServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	provider, err := NewProvider(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = provider.Generator().Complete(context.Background(), "ping")
	assert.Error(t, err)
	_, err = provider.Embedder().EmbedText(context.Background(), "ping")
	assert.Error(t, err)
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(ai.NewConfig(ai.WithGenerationModel("")))
	assert.Error(t, err)

	_, err = NewEmbedder(ai.NewConfig(ai.WithTemperature(3)))
	assert.Error(t, err)

	_, err = NewGenerator(ai.NewConfig(ai.WithHost("")))
	assert.Error(t, err)
}
