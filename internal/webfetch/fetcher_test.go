package webfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	return NewFetcher(Config{DisablePacing: true}, zaptest.NewLogger(t))
}

func TestFetchSuccess(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	body, contentType, err := newTestFetcher(t).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, string(body), "hello")
	assert.Contains(t, contentType, "text/html")
	assert.Contains(t, gotUA, "Mozilla/5.0")
}

func TestFetchForbiddenIsTerminal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, _, err := newTestFetcher(t).Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	fe, ok := err.(*FetchError)
	require.True(t, ok)
	assert.Equal(t, FailureForbidden, fe.Kind)
	assert.False(t, fe.Retryable())
	// No second attempt against a permission denial.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	body, _, err := newTestFetcher(t).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(body))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetchNotFoundIsTerminal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, _, err := newTestFetcher(t).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	fe := err.(*FetchError)
	assert.Equal(t, FailureNotFound, fe.Kind)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestFetchBadURL(t *testing.T) {
	_, _, err := newTestFetcher(t).Fetch(context.Background(), "not-a-url")
	require.Error(t, err)
	fe := err.(*FetchError)
	assert.Equal(t, FailureBadPayload, fe.Kind)
}

func TestIsSlowHost(t *testing.T) {
	f := NewFetcher(Config{
		DisablePacing:    true,
		SlowHostSuffixes: []string{"ncbi.nlm.nih.gov"},
	}, zaptest.NewLogger(t))

	assert.True(t, f.isSlowHost("pubmed.ncbi.nlm.nih.gov"))
	assert.True(t, f.isSlowHost("NCBI.NLM.NIH.GOV"))
	assert.False(t, f.isSlowHost("example.com"))
}

func TestIsProbablyPDF(t *testing.T) {
	assert.True(t, IsProbablyPDF("https://example.com/paper.PDF", ""))
	assert.True(t, IsProbablyPDF("https://example.com/paper", "application/pdf"))
	assert.False(t, IsProbablyPDF("https://example.com/page", "text/html"))
}
