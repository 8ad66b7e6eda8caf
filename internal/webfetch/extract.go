package webfetch

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Subtrees that carry no article text.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"form":     true,
	"nav":      true,
	"svg":      true,
}

// ExtractText reduces an HTML payload to whitespace-normalized visible text.
// It is deliberately simple: the downstream summarization call tolerates
// boilerplate, and payloads below the minimum usable length fall through to
// the snippet anyway.
func ExtractText(payload []byte) string {
	doc, err := html.Parse(bytes.NewReader(payload))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
				sb.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(sb.String()), " ")
}

// Title returns the document title, or empty when absent.
func Title(payload []byte) string {
	doc, err := html.Parse(bytes.NewReader(payload))
	if err != nil {
		return ""
	}
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if title != "" {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}
