package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/evidentia-ai/evidentia/internal/cache"
)

const cseResponse = `{"items":[
	{"title":"Alpha","link":"https://a.com/1","snippet":"first snippet"},
	{"title":"NoLink","link":"","snippet":"dropped"},
	{"title":"Beta","link":"https://b.com/2","snippet":"second snippet"}
]}`

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "what is x", q.Get("q"))
		assert.Equal(t, "engine-1", q.Get("cx"))
		assert.Equal(t, "key-1", q.Get("key"))
		assert.Equal(t, "3", q.Get("num"))
		_, _ = w.Write([]byte(cseResponse))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "key-1", EngineID: "engine-1"}, nil, zaptest.NewLogger(t))
	results, err := c.Search(context.Background(), "what is x", 3)
	require.NoError(t, err)

	// Results keep provider order; items without a link are dropped.
	require.Len(t, results, 2)
	assert.Equal(t, "https://a.com/1", results[0].URL)
	assert.Equal(t, "first snippet", results[0].Snippet)
	assert.Equal(t, "Beta", results[1].Title)
}

func TestSearchServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil, zaptest.NewLogger(t))
	_, err := c.Search(context.Background(), "x", 3)
	require.Error(t, err)

	se, ok := err.(*ServiceError)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
}

func TestSearchUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cch, err := cache.New(mr.Addr(), "", "test", time.Minute, zaptest.NewLogger(t))
	require.NoError(t, err)

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(cseResponse))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, cch, zaptest.NewLogger(t))

	first, err := c.Search(context.Background(), "cached query", 3)
	require.NoError(t, err)
	second, err := c.Search(context.Background(), "cached query", 3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPolicyAdmissible(t *testing.T) {
	open := Policy{}
	assert.True(t, open.Admissible("https://anything.example/x"))

	p := Policy{AllowedDomains: []string{"nih.gov", "who.int"}}
	assert.True(t, p.Admissible("https://nih.gov/page"))
	assert.True(t, p.Admissible("https://pubmed.ncbi.nlm.nih.gov/123/"))
	assert.True(t, p.Admissible("https://www.who.int/report"))
	assert.False(t, p.Admissible("https://nih.gov.evil.com/page"))
	assert.False(t, p.Admissible("https://example.com/page"))
}
