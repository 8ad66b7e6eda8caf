package webfetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractText(t *testing.T) {
	payload := []byte(`<html>
<head><title>Study Page</title><script>var x = 1;</script><style>p{}</style></head>
<body>
  <nav>Home | About</nav>
  <p>First   finding.</p>
  <div>Second <b>finding</b>.</div>
  <noscript>enable js</noscript>
</body></html>`)

	got := ExtractText(payload)
	assert.Contains(t, got, "First finding.")
	assert.Contains(t, got, "Second finding .")
	assert.NotContains(t, got, "var x")
	assert.NotContains(t, got, "p{}")
	assert.NotContains(t, got, "Home | About")
	assert.NotContains(t, got, "enable js")
}

func TestExtractTextEmpty(t *testing.T) {
	assert.Equal(t, "", ExtractText(nil))
	assert.Equal(t, "", ExtractText([]byte("  ")))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Study Page", Title([]byte("<html><head><title> Study Page </title></head><body></body></html>")))
	assert.Equal(t, "", Title([]byte("<html><body>no title</body></html>")))
}
