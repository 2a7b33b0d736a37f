package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"text2model/internal/domain/entity"
	"text2model/internal/infrastructure/llm"
	"text2model/internal/logging"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaEnhancer_Enhance(t *testing.T) {
	var got map[string]any
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response": "  A glowing futuristic city at dusk with sleek flying cars weaving between towers  ",
		})
	})

	g := llm.NewOllamaEnhancer(srv.URL+"/api/", "deepseek-r1:8b", 0.7, time.Second, logging.NewNop())
	out, err := g.Enhance(context.Background(), "A futuristic city with flying cars", "cid")
	require.NoError(t, err)

	assert.Equal(t, "A glowing futuristic city at dusk with sleek flying cars weaving between towers", out)
	assert.Equal(t, "deepseek-r1:8b", got["model"])
	assert.Equal(t, false, got["stream"])
	assert.InDelta(t, 0.7, got["temperature"], 1e-9)

	prompt, _ := got["prompt"].(string)
	assert.True(t, strings.HasPrefix(prompt, entity.EnhancementSystemPrompt))
	assert.Contains(t, prompt, "User description: A detailed 3D environment model of A futuristic city with flying cars.")
	assert.True(t, strings.HasSuffix(prompt, "Enhanced description:"))
}

func TestOllamaEnhancer_ShorterResponseKeepsOriginal(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "city"})
	})

	g := llm.NewOllamaEnhancer(srv.URL, "m", 0.7, time.Second, logging.NewNop())
	out, err := g.Enhance(context.Background(), "a quiet mountain village", "cid")
	require.NoError(t, err)
	assert.Equal(t, "a quiet mountain village", out)
}

func TestOllamaEnhancer_TrimsLongResponse(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"response": strings.Repeat("x", 1500)})
	})

	g := llm.NewOllamaEnhancer(srv.URL, "m", 0.7, time.Second, logging.NewNop())
	out, err := g.Enhance(context.Background(), "a robot", "cid")
	require.NoError(t, err)
	assert.Len(t, out, entity.MaxEnhancedPromptLen)
}

func TestOllamaEnhancer_Errors(t *testing.T) {
	t.Run("empty response", func(t *testing.T) {
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"response": "   "})
		})
		g := llm.NewOllamaEnhancer(srv.URL, "m", 0.7, time.Second, logging.NewNop())
		_, err := g.Enhance(context.Background(), "a robot", "cid")
		assert.ErrorIs(t, err, llm.ErrEmptyCompletion)
	})

	t.Run("non-200 status", func(t *testing.T) {
		srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
		})
		g := llm.NewOllamaEnhancer(srv.URL, "m", 0.7, time.Second, logging.NewNop())
		_, err := g.Enhance(context.Background(), "a robot", "cid")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "500")
	})
}

func TestOllamaEnhancer_Ping(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tags", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{{"name": "llama3"}},
		})
	})

	g := llm.NewOllamaEnhancer(srv.URL, "deepseek-r1:8b", 0.7, time.Second, logging.NewNop())
	assert.NoError(t, g.Ping(context.Background()))
}

func TestOllamaEnhancer_PingUnreachable(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {})
	url := srv.URL
	srv.Close()

	g := llm.NewOllamaEnhancer(url, "m", 0.7, time.Second, logging.NewNop())
	assert.Error(t, g.Ping(context.Background()))
}
