package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"text2model/internal/domain/entity"
	"text2model/internal/domain/repository"
	"text2model/internal/infrastructure/metrics"
)

var ErrEmptyCompletion = errors.New("empty completion from language model")

// OllamaEnhancer expands prompts with a local Ollama model.
type OllamaEnhancer struct {
	baseURL     string
	model       string
	temperature float64
	client      *http.Client
	logger      *slog.Logger
}

var _ repository.PromptEnhancer = (*OllamaEnhancer)(nil)

func NewOllamaEnhancer(baseURL, model string, temperature float64, timeout time.Duration, logger *slog.Logger) *OllamaEnhancer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OllamaEnhancer{
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// Enhance makes a single completion call. Failures are returned to the caller,
// which owns the retry and fallback policy.
func (g *OllamaEnhancer) Enhance(ctx context.Context, prompt, correlationID string) (string, error) {
	metrics.IncLLMRequest(g.model)
	start := time.Now()

	category := entity.Classify(prompt)
	framed := entity.Render(category, prompt)

	request := map[string]interface{}{
		"model":       g.model,
		"prompt":      fmt.Sprintf("%s\n\nUser description: %s\n\nEnhanced description:", entity.EnhancementSystemPrompt, framed),
		"stream":      false,
		"temperature": g.temperature,
	}

	var response map[string]interface{}
	if err := g.post(ctx, "/generate", request, &response); err != nil {
		metrics.IncError("llm", "generate")
		return "", fmt.Errorf("failed to call LLM API: %w", err)
	}

	text, _ := response["response"].(string)
	enhanced := strings.TrimSpace(text)
	if enhanced == "" {
		metrics.IncError("llm", "empty_response")
		return "", ErrEmptyCompletion
	}

	g.logger.Info("LLM inference completed",
		"correlation_id", correlationID,
		"category", category,
		"duration", time.Since(start),
		"original", prompt,
		"enhanced", enhanced,
	)

	if len(enhanced) < len(prompt) {
		g.logger.Warn("enhanced prompt shorter than original, keeping original", "correlation_id", correlationID)
		return prompt, nil
	}
	return entity.TrimEnhanced(enhanced), nil
}

// Ping checks that the configured model is available. A missing model is only
// reported, since the server may still pull it on first use.
func (g *OllamaEnhancer) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach ollama: %w", err)
	}
	defer g.closeBody(resp)

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("failed to decode tags: %w", err)
	}

	available := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		if m.Name == g.model {
			g.logger.Info("model is available", "model", g.model)
			return nil
		}
		available = append(available, m.Name)
	}
	g.logger.Warn("model not found on ollama server", "model", g.model, "available", available)
	return nil
}

func (g *OllamaEnhancer) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer g.closeBody(resp)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("ollama api error: %d - %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (g *OllamaEnhancer) closeBody(resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		g.logger.Warn("close body err", "err", err)
	}
}
