package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/evidentia-ai/evidentia/internal/cache"
	"github.com/evidentia-ai/evidentia/internal/metrics"
	"github.com/evidentia-ai/evidentia/internal/models"
)

// ServiceError is a provider-side search failure. The gather stage absorbs it
// per sub-question; it never aborts a run.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("search provider error: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("search provider error: %s", e.Message)
}

// The provider caps one request at this many results.
const maxPerRequest = 10

// Config carries the CSE-style provider credentials and endpoint.
type Config struct {
	BaseURL  string
	APIKey   string
	EngineID string
	Timeout  time.Duration
}

// Client queries the search provider for candidate links. Identical queries
// within the cache TTL are served from Redis.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cache      *cache.Cache
	logger     *zap.Logger
}

func NewClient(cfg Config, cch *cache.Cache, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cch,
		logger:     logger,
	}
}

type searchResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"items"`
}

// Search returns up to count candidate links for a query, in provider order.
func (c *Client) Search(ctx context.Context, query string, count int) ([]models.SearchResult, error) {
	if count <= 0 {
		count = 5
	}
	if count > maxPerRequest {
		count = maxPerRequest
	}

	cacheKey := fmt.Sprintf("search:%d:%s", count, query)
	var cached []models.SearchResult
	if err := c.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
		metrics.CacheHits.WithLabelValues("search", "hit").Inc()
		return cached, nil
	}
	metrics.CacheHits.WithLabelValues("search", "miss").Inc()

	params := url.Values{}
	params.Set("q", query)
	params.Set("cx", c.cfg.EngineID)
	params.Set("key", c.cfg.APIKey)
	params.Set("num", strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &ServiceError{Message: err.Error()}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ServiceError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServiceError{StatusCode: resp.StatusCode, Message: "search request failed"}
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &ServiceError{Message: fmt.Sprintf("decode response: %v", err)}
	}

	results := make([]models.SearchResult, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if strings.TrimSpace(item.Link) == "" {
			continue
		}
		results = append(results, models.SearchResult{
			URL:     item.Link,
			Title:   item.Title,
			Snippet: item.Snippet,
		})
	}

	c.cache.SetJSON(ctx, cacheKey, results)
	return results, nil
}

// Policy is the URL-admissibility hook consulted once per candidate link.
// An empty allowlist admits everything, for deployments that delegate domain
// filtering to the search engine configuration.
type Policy struct {
	AllowedDomains []string
}

// Admissible reports whether a candidate URL may be fetched.
func (p Policy) Admissible(rawURL string) bool {
	if len(p.AllowedDomains) == 0 {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, domain := range p.AllowedDomains {
		d := strings.ToLower(strings.TrimSpace(domain))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
