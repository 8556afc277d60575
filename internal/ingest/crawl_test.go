package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractLinksSameOriginOnly(t *testing.T) {
	page := `
<html><body>
<a href="/docs/intro">intro</a>
<a href="https://example.com/docs/guide">guide</a>
<a href="https://other.com/x">off-site</a>
<a href="mailto:a@example.com">mail</a>
<a href="#section">anchor-only</a>
</body></html>`

	got := extractLinks(page, "https://example.com")

	assert.ElementsMatch(t, []string{
		"https://example.com/docs/intro",
		"https://example.com/docs/guide",
	}, got)
}

func TestExtractLinksNoAnchors(t *testing.T) {
	got := extractLinks("<html><body><p>no links here</p></body></html>", "https://example.com")
	assert.Empty(t, got)
}
