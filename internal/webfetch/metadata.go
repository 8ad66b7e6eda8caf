package webfetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Article-index hosts with a structured summary endpoint. Fetching their HTML
// pages trips document-level access restrictions; the E-utilities endpoint
// serves the same bibliographic data without them.
const pubmedHost = "pubmed.ncbi.nlm.nih.gov"

const defaultEutilsBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// ArticleID extracts the article identifier from a URL belonging to the
// structured-metadata source class. The second return is false for URLs that
// should go through the direct-fetch path instead.
func ArticleID(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(parsed.Hostname())
	if host != pubmedHost && host != "www."+pubmedHost {
		return "", false
	}
	segment := strings.Trim(parsed.Path, "/")
	if idx := strings.IndexByte(segment, '/'); idx >= 0 {
		segment = segment[:idx]
	}
	if segment == "" {
		return "", false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return segment, true
}

// ArticleSummary is the structured record returned by the metadata endpoint.
type ArticleSummary struct {
	Title   string
	Source  string
	PubDate string
	Authors []string
}

// Synopsis renders the summary as a single citable line.
func (s ArticleSummary) Synopsis() string {
	parts := []string{strings.TrimSpace(s.Title)}
	if len(s.Authors) > 0 {
		authors := s.Authors
		if len(authors) > 3 {
			authors = append(append([]string{}, authors[:3]...), "et al")
		}
		parts = append(parts, strings.Join(authors, ", "))
	}
	if s.Source != "" {
		src := s.Source
		if s.PubDate != "" {
			src = fmt.Sprintf("%s (%s)", src, s.PubDate)
		}
		parts = append(parts, src)
	}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ". ")
}

// MetadataClient calls the structured summary endpoint for the known article
// source class.
type MetadataClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewMetadataClient(baseURL string, timeout time.Duration) *MetadataClient {
	if baseURL == "" {
		baseURL = defaultEutilsBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MetadataClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Summary fetches the bibliographic record for one article ID. Any transport,
// content-type, or parse problem is returned as an error; the caller falls
// through to the next resolution strategy.
func (m *MetadataClient) Summary(ctx context.Context, id string) (*ArticleSummary, error) {
	endpoint := fmt.Sprintf("%s/esummary.fcgi?db=pubmed&id=%s&retmode=json", m.baseURL, url.QueryEscape(id))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("metadata endpoint: %s", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(strings.ToLower(ct), "json") {
		return nil, fmt.Errorf("metadata endpoint: unexpected content type %q", ct)
	}

	var parsed struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode metadata response: %w", err)
	}

	raw, ok := parsed.Result[id]
	if !ok {
		return nil, fmt.Errorf("metadata response missing record for %s", id)
	}

	var record struct {
		Title   string `json:"title"`
		Source  string `json:"source"`
		PubDate string `json:"pubdate"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
	}
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode metadata record: %w", err)
	}
	if strings.TrimSpace(record.Title) == "" {
		return nil, fmt.Errorf("metadata record for %s has no title", id)
	}

	summary := &ArticleSummary{
		Title:   record.Title,
		Source:  record.Source,
		PubDate: record.PubDate,
	}
	for _, a := range record.Authors {
		if a.Name != "" {
			summary.Authors = append(summary.Authors, a.Name)
		}
	}
	return summary, nil
}
