package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/evidentia-ai/evidentia/internal/ratecontrol"
)

// ErrRateLimited signals the provider shed the request; callers may retry
// with backoff.
var ErrRateLimited = errors.New("generation rate limited")

// GenerationError is a non-retryable generation failure. The owning stage
// decides whether it is fatal (summarize/plan) or degrades to a failure
// marker (answer/synthesize).
type GenerationError struct {
	StatusCode int
	Message    string
}

func (e *GenerationError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("generation failed: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("generation failed: %s", e.Message)
}

const (
	defaultMaxAttempts = 3
	defaultBackoff     = 2 * time.Second
	maxBackoff         = 45 * time.Second
)

// Config carries the generation service endpoint and retry knobs.
type Config struct {
	BaseURL     string
	Token       string
	Provider    string
	Timeout     time.Duration
	MaxAttempts int
}

// Client is the TextGenerator boundary: a thin HTTP client for the generation
// service with provider-rate pacing and bounded retry on rate-limit responses.
type Client struct {
	baseURL     string
	token       string
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *zap.Logger
	maxAttempts int
	baseBackoff time.Duration
}

// Request is one generation call.
type Request struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	// JSONOnly asks the service for strict-JSON output (evaluator rubric).
	JSONOnly bool `json:"json_only,omitempty"`
}

// Result is the generation service response.
type Result struct {
	Text       string `json:"text"`
	Model      string `json:"model"`
	TokensUsed int    `json:"tokens_used"`
}

// NewClient builds a generation client. The per-provider request spacing comes
// from the rate limit tables; an unknown provider gets the default band.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if spacing := ratecontrol.DelayForRequest(cfg.Provider); spacing > 0 {
		limiter = rate.NewLimiter(rate.Every(spacing), 1)
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		token:       cfg.Token,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     limiter,
		logger:      logger,
		maxAttempts: maxAttempts,
		baseBackoff: defaultBackoff,
	}
}

// Generate performs a single generation call. Returns ErrRateLimited on a 429
// and *GenerationError on any other failure.
func (c *Client) Generate(ctx context.Context, req Request) (Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, &GenerationError{Message: err.Error()}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, &GenerationError{Message: fmt.Sprintf("marshal request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return Result{}, &GenerationError{Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, &GenerationError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return Result{}, ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, &GenerationError{StatusCode: resp.StatusCode, Message: "generation service error"}
	}

	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, &GenerationError{Message: fmt.Sprintf("decode response: %v", err)}
	}
	return out, nil
}

// GenerateWithRetry retries Generate on rate-limit responses with exponential
// backoff, up to the configured attempt budget. Non-retryable failures are
// surfaced immediately.
func (c *Client) GenerateWithRetry(ctx context.Context, req Request) (Result, error) {
	backoff := c.baseBackoff
	var lastErr error

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		result, err := c.Generate(ctx, req)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrRateLimited) {
			return Result{}, err
		}
		lastErr = err

		if attempt == c.maxAttempts-1 {
			break
		}
		if c.logger != nil {
			c.logger.Warn("generation rate limited, backing off",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
		}
		select {
		case <-ctx.Done():
			return Result{}, &GenerationError{Message: ctx.Err().Error()}
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return Result{}, lastErr
}
