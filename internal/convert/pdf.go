package convert

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"ragcore/internal/errs"
)

// PDFHandler converts PDF files into a CanonicalDocument by extracting text
// in visual reading order and inferring a heading outline from typographic
// and lexical cues, since the PDF format carries no structural markup.
type PDFHandler struct{}

func (h *PDFHandler) Formats() []string { return []string{"pdf"} }

func (h *PDFHandler) Parse(_ context.Context, locator string, data []byte) (CanonicalDocument, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return CanonicalDocument{}, errs.Wrap(errs.SourceUnreadable, "open pdf: "+locator, err)
	}

	numPages := reader.NumPage()
	pageTexts := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageTexts = append(pageTexts, extractPageTextOrdered(page))
	}

	pageTexts = fixRunningHeaders(pageTexts)

	sections := make([]Section, 0, len(pageTexts))
	for i, text := range pageTexts {
		sections = append(sections, splitPageIntoSections(text, i+1)...)
	}

	return CanonicalDocument{
		Title:   locator,
		Text:    Flatten(sections),
		Outline: sections,
	}, nil
}

// textFragment is one line of text positioned on the page, used to recover
// reading order from the PDF's unordered content stream.
type textFragment struct {
	y, x float64
	text string
}

func extractPageTextOrdered(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil || len(rows) == 0 {
		text, _ := page.GetPlainText(nil)
		return text
	}

	var frags []textFragment
	for _, row := range rows {
		var sb strings.Builder
		minX := 0.0
		for i, word := range row.Content {
			if i == 0 {
				minX = float64(word.X)
			}
			sb.WriteString(word.S)
			sb.WriteString(" ")
		}
		frags = append(frags, textFragment{y: float64(row.Position), x: minX, text: strings.TrimSpace(sb.String())})
	}

	sort.SliceStable(frags, func(i, j int) bool {
		if closeEnough(frags[i].y, frags[j].y, 2) {
			return frags[i].x < frags[j].x
		}
		return frags[i].y > frags[j].y
	})

	var out strings.Builder
	for _, f := range frags {
		if f.text == "" {
			continue
		}
		out.WriteString(f.text)
		out.WriteString("\n")
	}
	return out.String()
}

func closeEnough(a, b, tolerance float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}

var (
	numberedHeadingRe = regexp.MustCompile(`^(\d+(\.\d+)*)\s+\S`)
	headingPrefixes   = []string{"chapter", "section", "article", "annex", "appendix",
		"capítulo", "artículo", "seção", "artigo", "chapitre", "article"}
)

func isLikelyHeading(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || len(trimmed) > 120 {
		return false
	}
	if numberedHeadingRe.MatchString(trimmed) {
		return true
	}
	lower := strings.ToLower(trimmed)
	for _, p := range headingPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	if trimmed == strings.ToUpper(trimmed) && strings.ToLower(trimmed) != strings.ToUpper(trimmed) {
		letters := 0
		for _, r := range trimmed {
			if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
				letters++
			}
		}
		return letters >= 3
	}
	return false
}

func detectHeadingLevel(line string) int {
	trimmed := strings.TrimSpace(line)
	if m := numberedHeadingRe.FindStringSubmatch(trimmed); m != nil {
		return strings.Count(m[1], ".") + 1
	}
	return 1
}

func classifySectionType(heading, content string) string {
	lower := strings.ToLower(heading + " " + content)
	switch {
	case strings.Contains(lower, "definition") || strings.Contains(lower, "means"):
		return "definition"
	case strings.Contains(lower, "shall") || strings.Contains(lower, "must"):
		return "requirement"
	case strings.Contains(lower, "table") || strings.Contains(lower, "|"):
		return "table"
	case strings.Contains(lower, "annex") || strings.Contains(lower, "appendix"):
		return "annex"
	default:
		return "section"
	}
}

func splitPageIntoSections(pageText string, pageNumber int) []Section {
	lines := strings.Split(pageText, "\n")
	var sections []Section
	var heading string
	var contentLines []string

	flush := func() {
		if heading == "" && len(contentLines) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(contentLines, "\n"))
		sections = append(sections, Section{
			Heading:  heading,
			Content:  content,
			Level:    detectHeadingLevel(heading),
			Type:     classifySectionType(heading, content),
			Metadata: map[string]string{"page": fmt.Sprintf("%d", pageNumber)},
		})
		contentLines = nil
	}

	for _, line := range lines {
		if isLikelyHeading(line) {
			flush()
			heading = strings.TrimSpace(line)
			continue
		}
		contentLines = append(contentLines, line)
	}
	flush()
	return sections
}

// fixRunningHeaders drops a page's first line when that same line opens more
// than max(a quarter of the pages, 3) pages (page numbers, document titles in
// running headers), treating it as carried-over context rather than a new
// heading each time it recurs. Documents of fewer than 4 pages are unchanged.
func fixRunningHeaders(pages []string) []string {
	total := len(pages)
	if total < 4 {
		return pages
	}
	firstLineCounts := map[string]int{}
	firstLines := make([]string, total)
	for i, p := range pages {
		lines := strings.SplitN(p, "\n", 2)
		first := strings.TrimSpace(lines[0])
		firstLines[i] = first
		if first != "" {
			firstLineCounts[first]++
		}
	}
	threshold := total / 4
	if threshold < 3 {
		threshold = 3
	}
	out := make([]string, total)
	lastHeading := ""
	for i, p := range pages {
		if firstLineCounts[firstLines[i]] > threshold {
			rest := ""
			if parts := strings.SplitN(p, "\n", 2); len(parts) == 2 {
				rest = parts[1]
			}
			if lastHeading != "" {
				out[i] = lastHeading + "\n" + rest
			} else {
				out[i] = rest
			}
			continue
		}
		lastHeading = firstLines[i]
		out[i] = p
	}
	return out
}
