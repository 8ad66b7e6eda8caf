package webfetch

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/evidentia-ai/evidentia/internal/ratecontrol"
)

// FailureKind classifies a document fetch failure for retry decisions.
type FailureKind int

const (
	FailureForbidden FailureKind = iota
	FailureNotFound
	FailureTimeout
	FailureRateLimited
	FailureServerError
	FailureBadPayload
)

func (k FailureKind) String() string {
	switch k {
	case FailureForbidden:
		return "forbidden"
	case FailureNotFound:
		return "not_found"
	case FailureTimeout:
		return "timeout"
	case FailureRateLimited:
		return "rate_limited"
	case FailureServerError:
		return "server_error"
	case FailureBadPayload:
		return "bad_payload"
	}
	return "unknown"
}

// FetchError is a classified document fetch failure.
type FetchError struct {
	Kind    FailureKind
	URL     string
	Message string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %s", e.URL, e.Kind, e.Message)
}

// Retryable reports whether another attempt against the same URL can help.
// Forbidden is terminal: retrying a permission denial only burns the budget.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case FailureTimeout, FailureRateLimited, FailureServerError:
		return true
	}
	return false
}

const (
	defaultTimeout   = 12 * time.Second
	slowTimeout      = 30 * time.Second
	defaultRetries   = 3
	baseRetryBackoff = 2 * time.Second
	maxRetryBackoff  = 45 * time.Second
	maxBodyBytes     = 2 << 20 // 2 MiB is plenty for text extraction
)

// Browser-like header pool. Sites that deny obvious bot traffic generally
// accept these.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
}

// Config tunes the direct document fetcher.
type Config struct {
	// DefaultTimeout applies to most hosts; SlowTimeout to hosts matching
	// SlowHostSuffixes (journal and government sites routinely take longer).
	DefaultTimeout   time.Duration
	SlowTimeout      time.Duration
	SlowHostSuffixes []string
	MaxRetries       int
	UserAgents       []string
	// DisablePacing skips the randomized pre-fetch delay and per-host
	// spacing. Intended for tests.
	DisablePacing bool
}

// Fetcher performs direct document fetches with realistic client headers,
// category-specific timeouts, bounded retries on transient failures, and
// per-origin pacing. Pacing is per-host: a slow origin never delays fetches
// against other origins.
type Fetcher struct {
	cfg        Config
	client     *http.Client
	slowClient *http.Client
	logger     *zap.Logger

	mu           sync.Mutex
	hostLimiters map[string]*rate.Limiter
	rng          *rand.Rand
}

func NewFetcher(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = defaultTimeout
	}
	if cfg.SlowTimeout <= 0 {
		cfg.SlowTimeout = slowTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultRetries
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = defaultUserAgents
	}

	return &Fetcher{
		cfg:          cfg,
		client:       &http.Client{Timeout: cfg.DefaultTimeout},
		slowClient:   &http.Client{Timeout: cfg.SlowTimeout},
		logger:       logger,
		hostLimiters: make(map[string]*rate.Limiter),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Fetch retrieves a document, returning the body bytes and content type.
// Transient failures (timeout, 429, 5xx) are retried with exponential
// backoff; a 403 is terminal for the direct-fetch strategy and returns
// immediately so the caller can fall through to the snippet.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return nil, "", &FetchError{Kind: FailureBadPayload, URL: rawURL, Message: "unparseable URL"}
	}

	if !f.cfg.DisablePacing {
		if err := f.pace(ctx, parsed.Hostname()); err != nil {
			return nil, "", &FetchError{Kind: FailureTimeout, URL: rawURL, Message: err.Error()}
		}
	}

	client := f.client
	if f.isSlowHost(parsed.Hostname()) {
		client = f.slowClient
	}

	backoff := baseRetryBackoff
	var lastErr *FetchError

	for attempt := 0; attempt < f.cfg.MaxRetries; attempt++ {
		body, contentType, ferr := f.attempt(ctx, client, rawURL)
		if ferr == nil {
			return body, contentType, nil
		}
		if !ferr.Retryable() {
			return nil, "", ferr
		}
		lastErr = ferr

		if attempt == f.cfg.MaxRetries-1 {
			break
		}
		if f.logger != nil {
			f.logger.Debug("transient fetch failure, retrying",
				zap.String("url", rawURL),
				zap.String("kind", ferr.Kind.String()),
				zap.Duration("backoff", backoff),
			)
		}
		select {
		case <-ctx.Done():
			return nil, "", &FetchError{Kind: FailureTimeout, URL: rawURL, Message: ctx.Err().Error()}
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxRetryBackoff {
			backoff = maxRetryBackoff
		}
	}
	return nil, "", lastErr
}

func (f *Fetcher) attempt(ctx context.Context, client *http.Client, rawURL string) ([]byte, string, *FetchError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", &FetchError{Kind: FailureBadPayload, URL: rawURL, Message: err.Error()}
	}
	f.setHeaders(req)

	resp, err := client.Do(req)
	if err != nil {
		kind := FailureServerError
		if ue, ok := err.(*url.Error); ok && ue.Timeout() {
			kind = FailureTimeout
		}
		return nil, "", &FetchError{Kind: kind, URL: rawURL, Message: err.Error()}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized:
		return nil, "", &FetchError{Kind: FailureForbidden, URL: rawURL, Message: resp.Status}
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, "", &FetchError{Kind: FailureNotFound, URL: rawURL, Message: resp.Status}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, "", &FetchError{Kind: FailureRateLimited, URL: rawURL, Message: resp.Status}
	case resp.StatusCode >= 500:
		return nil, "", &FetchError{Kind: FailureServerError, URL: rawURL, Message: resp.Status}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, "", &FetchError{Kind: FailureBadPayload, URL: rawURL, Message: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", &FetchError{Kind: FailureServerError, URL: rawURL, Message: err.Error()}
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (f *Fetcher) setHeaders(req *http.Request) {
	f.mu.Lock()
	ua := f.cfg.UserAgents[f.rng.Intn(len(f.cfg.UserAgents))]
	f.mu.Unlock()

	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", "https://www.google.com/")
	req.Header.Set("Connection", "keep-alive")
}

// pace applies the per-invocation randomized delay plus per-host request
// spacing. The random delay breaks up bursts against one origin when many
// fetches for a sub-question start at the same instant.
func (f *Fetcher) pace(ctx context.Context, host string) error {
	band := ratecontrol.FetchPacingBand()

	f.mu.Lock()
	var delay time.Duration
	if band.Max > band.Min {
		delay = band.Min + time.Duration(f.rng.Int63n(int64(band.Max-band.Min)))
	} else {
		delay = band.Min
	}
	limiter, ok := f.hostLimiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(band.Min), 1)
		f.hostLimiters[host] = limiter
	}
	f.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
	}
	return limiter.Wait(ctx)
}

func (f *Fetcher) isSlowHost(host string) bool {
	host = strings.ToLower(host)
	for _, suffix := range f.cfg.SlowHostSuffixes {
		s := strings.ToLower(strings.TrimSpace(suffix))
		if s == "" {
			continue
		}
		if host == s || strings.HasSuffix(host, s) {
			return true
		}
	}
	return false
}

// IsProbablyPDF reports whether a URL or declared content type points at a
// PDF. Extraction skips those payloads; the snippet fallback covers them.
func IsProbablyPDF(rawURL, contentType string) bool {
	if strings.HasSuffix(strings.ToLower(rawURL), ".pdf") {
		return true
	}
	return strings.Contains(strings.ToLower(contentType), "pdf")
}
