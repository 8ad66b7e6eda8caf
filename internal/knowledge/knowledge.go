package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/evidentia-ai/evidentia/internal/cache"
	"github.com/evidentia-ai/evidentia/internal/metrics"
)

// ServiceError is a retrieval backend failure. Non-retryable at this layer;
// the gather stage proceeds with an explicit no-answer value.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("knowledge service error: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("knowledge service error: %s", e.Message)
}

// Config carries the retrieval service endpoint and credentials.
type Config struct {
	BaseURL   string
	Token     string
	EndUserID string
	Timeout   time.Duration
}

// Client queries the retrieval backend for a whole-question answer.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cache      *cache.Cache
	logger     *zap.Logger
}

func NewClient(cfg Config, cch *cache.Cache, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 35 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cch,
		logger:     logger,
	}
}

type queryRequest struct {
	Query     string `json:"query"`
	EndUserID string `json:"end_user_id,omitempty"`
}

type queryResponse struct {
	OutputText string `json:"output_text"`
}

// Query returns the retrieval-backed answer for the full question.
func (c *Client) Query(ctx context.Context, question string) (string, error) {
	cacheKey := "knowledge:" + question
	var cached string
	if err := c.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
		metrics.CacheHits.WithLabelValues("knowledge", "hit").Inc()
		return cached, nil
	}
	metrics.CacheHits.WithLabelValues("knowledge", "miss").Inc()

	body, err := json.Marshal(queryRequest{Query: question, EndUserID: c.cfg.EndUserID})
	if err != nil {
		return "", &ServiceError{Message: fmt.Sprintf("marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/query", bytes.NewReader(body))
	if err != nil {
		return "", &ServiceError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ServiceError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ServiceError{StatusCode: resp.StatusCode, Message: "query failed"}
	}

	var parsed queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &ServiceError{Message: fmt.Sprintf("decode response: %v", err)}
	}

	c.cache.SetJSON(ctx, cacheKey, parsed.OutputText)
	return parsed.OutputText, nil
}
