// Package convert implements the Converter: format-specific handlers that
// turn a raw source (PDF, DOCX, XLSX, Markdown/HTML/plain text, audio, or a
// rendered web page) into a CanonicalDocument — plain text plus a heading
// outline — dispatched through a format registry.
package convert

import (
	"context"
	"fmt"

	"ragcore/internal/errs"
)

// Section is one node of a document's heading outline.
type Section struct {
	Heading  string            `json:"heading"`
	Content  string            `json:"content"`
	Level    int               `json:"level"`
	Type     string            `json:"type,omitempty"` // section, table, definition, requirement, annex, speech-segment
	Children []Section         `json:"children,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Artifact is a non-text byproduct of conversion (e.g. an extracted image),
// kept alongside the canonical text but not embedded or chunked.
type Artifact struct {
	Name     string
	MIMEType string
	Data     []byte
}

// CanonicalDocument is the Converter's output: flattened text for chunking,
// plus the outline that informed it and any extracted artifacts.
type CanonicalDocument struct {
	Title       string
	Text        string
	Outline     []Section
	Artifacts   []Artifact
	Frontmatter map[string]string
}

// Handler converts one source format into a CanonicalDocument.
type Handler interface {
	Formats() []string
	Parse(ctx context.Context, locator string, data []byte) (CanonicalDocument, error)
}

// Registry dispatches to a Handler by format key (file extension or a
// source-kind-derived pseudo-format like "web" or "audio").
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds a Registry with every built-in Handler registered.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	for _, h := range []Handler{
		&PDFHandler{},
		&DOCXHandler{},
		&XLSXHandler{},
		&MarkdownHandler{},
		&AudioHandler{},
	} {
		r.Register(h)
	}
	return r
}

// Register adds or replaces the handler for each of h's supported formats.
func (r *Registry) Register(h Handler) {
	for _, f := range h.Formats() {
		r.handlers[f] = h
	}
}

// Convert dispatches to the handler registered for format.
func (r *Registry) Convert(ctx context.Context, format, locator string, data []byte) (CanonicalDocument, error) {
	h, ok := r.handlers[format]
	if !ok {
		return CanonicalDocument{}, errs.New(errs.SourceUnreadable, fmt.Sprintf("no converter registered for format %q", format))
	}
	return h.Parse(ctx, locator, data)
}

// Flatten renders an outline back into a single plain-text body, used by
// handlers that build a Section tree before producing CanonicalDocument.Text.
func Flatten(sections []Section) string {
	var out string
	for _, s := range sections {
		if s.Heading != "" {
			out += s.Heading + "\n"
		}
		if s.Content != "" {
			out += s.Content + "\n\n"
		}
		if len(s.Children) > 0 {
			out += Flatten(s.Children)
		}
	}
	return out
}
