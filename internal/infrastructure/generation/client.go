package generation

import (
	"bytes"
	"context"
	"encoding/json"
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

const DefaultURLTemplate = "https://%s.node3.openfabric.network/execution"

// Client calls remote generation apps by service id. The URL for a service is
// built from urlTemplate with the id substituted for %s.
type Client struct {
	urlTemplate string
	client      *http.Client
	logger      *slog.Logger
}

var _ repository.GenerationService = (*Client)(nil)

func NewClient(urlTemplate string, timeout time.Duration, logger *slog.Logger) *Client {
	if urlTemplate == "" {
		urlTemplate = DefaultURLTemplate
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		urlTemplate: urlTemplate,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// URL builds the endpoint of a service. Ids that are not a single DNS label
// are rejected so they cannot redirect the call to another host.
func (c *Client) URL(serviceID string) (string, error) {
	if err := entity.ValidateServiceID(serviceID); err != nil {
		return "", err
	}
	if strings.Contains(c.urlTemplate, "%s") {
		return fmt.Sprintf(c.urlTemplate, serviceID), nil
	}
	return strings.TrimRight(c.urlTemplate, "/") + "/" + serviceID, nil
}

func (c *Client) Call(ctx context.Context, serviceID string, payload map[string]any) (map[string]any, error) {
	url, err := c.URL(serviceID)
	if err != nil {
		metrics.IncError("generation", "service_id")
		return nil, err
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.IncError("generation", "request")
		return nil, fmt.Errorf("failed to call service %s: %w", serviceID, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn("close body err", "err", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.IncError("generation", "status")
		return nil, fmt.Errorf("service %s error: %d - %s", serviceID, resp.StatusCode, string(body))
	}

	result := map[string]any{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &result); err != nil {
			metrics.IncError("generation", "decode")
			return nil, fmt.Errorf("failed to decode response from %s: %w", serviceID, err)
		}
	}

	c.logger.Debug("generation service call completed",
		"service", serviceID,
		"duration", time.Since(start),
		"keys", len(result),
	)
	return result, nil
}
