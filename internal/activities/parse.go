package activities

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	numberedLineRe = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*(.+?)\s*$`)
	jsonBlockRe    = regexp.MustCompile(`(?s)\{.*\}`)
	trailingComma  = regexp.MustCompile(`,\s*([}\]])`)
)

// parseNumberedList extracts list items from model output, accepting
// "1." / "1)" / "-" / "*" prefixes and ignoring surrounding prose.
func parseNumberedList(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		m := numberedLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		item := strings.TrimSpace(strings.Trim(m[1], `"`))
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

// decodeLooseJSON unmarshals model output into v, tolerating the two
// defects models actually produce: prose or fences around the object,
// and trailing commas. Anything beyond that is a real parse failure.
func decodeLooseJSON(text string, v interface{}) error {
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}
	block := jsonBlockRe.FindString(text)
	if block == "" {
		return json.Unmarshal([]byte(text), v)
	}
	if err := json.Unmarshal([]byte(block), v); err == nil {
		return nil
	}
	repaired := trailingComma.ReplaceAllString(block, "$1")
	return json.Unmarshal([]byte(repaired), v)
}

// truncate cuts s to at most n bytes on a rune boundary, appending an
// ellipsis when it cut anything.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := s[:n]
	if i := strings.LastIndexFunc(cut, func(r rune) bool { return r == ' ' || r == '\n' }); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "…"
}
