package convert

import (
	"context"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/go-shiori/go-readability"

	"ragcore/internal/errs"
)

// MarkdownHandler converts Markdown, plain text, and raw HTML into a
// CanonicalDocument. HTML is first reduced to its main article content with
// go-readability (stripping nav/ads/boilerplate) and converted to Markdown,
// so the same heading-based outline logic serves all three formats.
type MarkdownHandler struct{}

func (h *MarkdownHandler) Formats() []string { return []string{"md", "markdown", "txt", "html", "web"} }

var mdHeadingRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

func (h *MarkdownHandler) Parse(_ context.Context, locator string, data []byte) (CanonicalDocument, error) {
	text := string(data)
	if looksLikeHTML(text) {
		converted, err := htmlToMarkdown(locator, text)
		if err != nil {
			return CanonicalDocument{}, err
		}
		text = converted
	}

	sections := splitMarkdownIntoSections(text)
	return CanonicalDocument{
		Title:   locator,
		Text:    Flatten(sections),
		Outline: sections,
	}, nil
}

func looksLikeHTML(text string) bool {
	trimmed := strings.TrimSpace(strings.ToLower(text))
	return strings.HasPrefix(trimmed, "<!doctype") || strings.HasPrefix(trimmed, "<html") || strings.Contains(trimmed, "<body")
}

func htmlToMarkdown(locator, html string) (string, error) {
	article, err := readability.FromReader(strings.NewReader(html), nil)
	body := html
	if err == nil && strings.TrimSpace(article.Content) != "" {
		body = article.Content
	}

	md, err := htmltomarkdown.ConvertString(body)
	if err != nil {
		return "", errs.Wrap(errs.SourceUnreadable, "convert html to markdown: "+locator, err)
	}
	return md, nil
}

func splitMarkdownIntoSections(text string) []Section {
	lines := strings.Split(text, "\n")
	var sections []Section
	var heading string
	var level int
	var contentLines []string

	flush := func() {
		if heading == "" && len(contentLines) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(contentLines, "\n"))
		sections = append(sections, Section{
			Heading: heading,
			Content: content,
			Level:   level,
			Type:    classifySectionType(heading, content),
		})
		contentLines = nil
	}

	for _, line := range lines {
		if m := mdHeadingRe.FindStringSubmatch(line); m != nil {
			flush()
			level = len(m[1])
			heading = strings.TrimSpace(m[2])
			continue
		}
		contentLines = append(contentLines, line)
	}
	flush()
	return sections
}
