package citations

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/evidentia-ai/evidentia/internal/models"
)

// NormalizeURL produces the canonical form used as the evidence dedup key.
// Scheme and host are lowercased, a leading "www." is dropped, fragments and
// known tracking parameters are removed, and trailing slashes are trimmed.
func NormalizeURL(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)

	if strings.HasPrefix(parsed.Host, "www.") {
		parsed.Host = parsed.Host[4:]
	}

	parsed.Fragment = ""

	if parsed.RawQuery != "" {
		q := parsed.Query()
		trackingParams := []string{
			"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
			"fbclid", "gclid", "msclkid",
			"ref", "source",
		}
		for _, param := range trackingParams {
			q.Del(param)
		}
		parsed.RawQuery = q.Encode()
	}

	if strings.HasSuffix(parsed.Path, "/") {
		parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	}

	return parsed.String(), nil
}

// CanonicalKey returns the dedup key for a raw URL, falling back to a
// lowercased trim when the URL does not parse. An empty input yields an empty
// key, which Dedupe treats as non-collapsible.
func CanonicalKey(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return ""
	}
	if normalized, err := NormalizeURL(trimmed); err == nil && normalized != "" {
		return normalized
	}
	return strings.ToLower(trimmed)
}

// ExtractDomain returns the lowercase host of a URL without port or a leading
// "www.", preserving other subdomains.
func ExtractDomain(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	host := strings.ToLower(parsed.Host)
	if colonIndex := strings.Index(host, ":"); colonIndex != -1 {
		host = host[:colonIndex]
	}
	if strings.HasPrefix(host, "www.") {
		host = host[4:]
	}
	return host, nil
}

// Dedupe collapses evidence items that share a canonical URL, keeping the
// earlier-seen item (first-writer-wins). Items without a usable key are kept
// as-is. The input order is preserved, which makes the operation idempotent.
func Dedupe(items []models.Evidence) []models.Evidence {
	if len(items) <= 1 {
		return items
	}

	out := make([]models.Evidence, 0, len(items))
	seen := make(map[string]bool, len(items))

	for _, ev := range items {
		key := ev.SourceID
		if key == "" {
			key = CanonicalKey(ev.URL)
		}
		if key != "" {
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		out = append(out, ev)
	}
	return out
}

// Promote flattens the per-subquestion evidence partitions in subquestion
// order, dedupes globally, caps the list at maxSources, and assigns citation
// indices 1..k. Numbering restarts from 1 on every call so each synthesis pass
// gets a fresh, stable numbering. The returned list is the only place evidence
// from different subquestions mixes; per-subquestion partitions are never
// modified.
func Promote(subquestions []string, bySubquestion map[string][]models.Evidence, maxSources int) []models.Evidence {
	var flat []models.Evidence
	for _, sq := range subquestions {
		flat = append(flat, bySubquestion[sq]...)
	}
	flat = Dedupe(flat)

	if maxSources > 0 && len(flat) > maxSources {
		flat = flat[:maxSources]
	}

	promoted := make([]models.Evidence, len(flat))
	for i, ev := range flat {
		ev.CitationIndex = i + 1
		promoted[i] = ev
	}
	return promoted
}

// FormatSources renders the numbered source list that accompanies the final
// answer's inline [n] markers.
func FormatSources(promoted []models.Evidence) string {
	if len(promoted) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, ev := range promoted {
		title := ev.Title
		if strings.TrimSpace(title) == "" {
			title = "Source"
		}
		sb.WriteString(fmt.Sprintf("[%d] %s — %s\n", ev.CitationIndex, title, ev.URL))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatSnippets renders the evidence snippets block fed to the synthesis and
// evaluation prompts, truncating each synopsis to keep prompt cost bounded.
func FormatSnippets(promoted []models.Evidence, maxSnippets, maxChars int) string {
	if maxSnippets > 0 && len(promoted) > maxSnippets {
		promoted = promoted[:maxSnippets]
	}
	var sb strings.Builder
	for _, ev := range promoted {
		synopsis := ev.Synopsis
		if maxChars > 0 && len(synopsis) > maxChars {
			synopsis = synopsis[:maxChars]
		}
		sb.WriteString(fmt.Sprintf("[%d] %s\n", ev.CitationIndex, synopsis))
	}
	return strings.TrimRight(sb.String(), "\n")
}
