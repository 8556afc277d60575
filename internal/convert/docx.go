package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"

	"ragcore/internal/errs"
)

// DOCXHandler converts Word documents into a CanonicalDocument. DOCX has no
// public Go parser in the pack, so this reads the OOXML package directly:
// word/document.xml holds the body as a flat sequence of paragraphs, each
// tagged with the Word style that the document's style sheet maps to a
// heading level.
type DOCXHandler struct{}

func (h *DOCXHandler) Formats() []string { return []string{"docx"} }

type wordBody struct {
	Paragraphs []wordParagraph `xml:"body>p"`
}

type wordParagraph struct {
	Style string     `xml:"pPr>pStyle>val,attr"`
	Runs  []wordRun  `xml:"r"`
}

type wordRun struct {
	Text []string `xml:"t"`
}

func (h *DOCXHandler) Parse(_ context.Context, locator string, data []byte) (CanonicalDocument, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return CanonicalDocument{}, errs.Wrap(errs.SourceUnreadable, "open docx: "+locator, err)
	}

	var docXML []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return CanonicalDocument{}, errs.Wrap(errs.SourceUnreadable, "read document.xml: "+locator, err)
		}
		docXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return CanonicalDocument{}, errs.Wrap(errs.SourceUnreadable, "read document.xml: "+locator, err)
		}
		break
	}
	if docXML == nil {
		return CanonicalDocument{}, errs.New(errs.SourceUnreadable, "docx missing word/document.xml: "+locator)
	}

	var body wordBody
	if err := xml.Unmarshal(docXML, &body); err != nil {
		return CanonicalDocument{}, errs.Wrap(errs.SourceUnreadable, "parse document.xml: "+locator, err)
	}

	var sections []Section
	var heading string
	var contentLines []string

	flush := func() {
		if heading == "" && len(contentLines) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(contentLines, "\n"))
		sections = append(sections, Section{
			Heading: heading,
			Content: content,
			Level:   1,
			Type:    classifySectionType(heading, content),
		})
		contentLines = nil
	}

	for _, p := range body.Paragraphs {
		text := paragraphText(p)
		if text == "" {
			continue
		}
		if isHeadingStyle(p.Style) {
			flush()
			heading = text
			continue
		}
		contentLines = append(contentLines, text)
	}
	flush()

	return CanonicalDocument{
		Title:   locator,
		Text:    Flatten(sections),
		Outline: sections,
	}, nil
}

func paragraphText(p wordParagraph) string {
	var sb strings.Builder
	for _, r := range p.Runs {
		for _, t := range r.Text {
			sb.WriteString(t)
		}
	}
	return strings.TrimSpace(sb.String())
}

func isHeadingStyle(style string) bool {
	lower := strings.ToLower(style)
	return strings.HasPrefix(lower, "heading") || strings.HasPrefix(lower, "title")
}
