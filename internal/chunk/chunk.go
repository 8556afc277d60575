// Package chunk splits a converted document's outline into retrieval-sized
// fragments: one chunk per structural unit (Section) that fits within the
// token budget, falling back to sentence- then word-boundary splitting for
// units that don't.
package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"ragcore/internal/convert"
)

// Method records which strategy produced a given Fragment, per
// chunker_method: structure_aware chunks map 1:1 onto a Section; fallback
// chunks are the product of splitting an oversized Section further.
type Method string

const (
	MethodStructureAware Method = "structure_aware"
	MethodFallback       Method = "fallback"
)

// Fragment is one chunk of text ready for embedding, carrying the outline
// position it was produced from.
type Fragment struct {
	Text     string
	Heading  string
	Context  []string
	Level    int
	Index    int
	Method   Method
	Metadata map[string]string
}

// Tokenizer measures a fragment's size in the unit max_tokens is expressed
// in. Swappable so chunk sizing can track a specific embedding model's
// tokenizer; defaults to whitespace-word counting.
type Tokenizer interface {
	Count(text string) int
}

// WhitespaceTokenizer counts words, used when no model-specific tokenizer is
// configured. Approximates tokens closely enough for sizing decisions.
type WhitespaceTokenizer struct{}

func (WhitespaceTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

var sentenceRe = regexp.MustCompile(`(?s)([^.!?]+[.!?]+|[^.!?]+$)`)

// Config controls chunk sizing.
type Config struct {
	MaxTokens int
	Overlap   int
	Tokenizer Tokenizer
}

// Split walks a document's outline and produces Fragments in outline order.
// Every Section becomes one structure_aware Fragment unless it exceeds
// MaxTokens, in which case it is subdivided by sentence boundary, falling
// back further to word-boundary splitting for any single sentence that
// alone still exceeds MaxTokens.
func Split(doc convert.CanonicalDocument, cfg Config) []Fragment {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	tok := cfg.Tokenizer
	if tok == nil {
		tok = WhitespaceTokenizer{}
	}

	var out []Fragment
	walkSections(doc.Outline, nil, cfg, tok, &out)
	if len(out) == 0 && strings.TrimSpace(doc.Text) != "" {
		out = splitOversized(doc.Text, "", nil, 0, cfg, tok, &out, 0)
	}
	return out
}

// walkSections recurses depth-first through the outline, carrying parentPath
// — the ancestor headings accumulated so far — so every emitted Fragment's
// Context is the full heading path from the outline root down to (and
// including) its own section's heading.
func walkSections(sections []convert.Section, parentPath []string, cfg Config, tok Tokenizer, out *[]Fragment) {
	for _, s := range sections {
		path := parentPath
		if s.Heading != "" {
			path = append(append([]string{}, parentPath...), s.Heading)
		}
		text := strings.TrimSpace(s.Content)
		if text != "" {
			if tok.Count(text) <= cfg.MaxTokens {
				*out = append(*out, Fragment{
					Text:     text,
					Heading:  s.Heading,
					Context:  path,
					Level:    s.Level,
					Index:    len(*out),
					Method:   MethodStructureAware,
					Metadata: s.Metadata,
				})
			} else {
				splitOversized(text, s.Heading, path, s.Level, cfg, tok, out, len(*out))
			}
		}
		if len(s.Children) > 0 {
			walkSections(s.Children, path, cfg, tok, out)
		}
	}
}

// splitOversized subdivides text that exceeds MaxTokens by sentence
// boundary, grouping sentences up to the budget, then falls back to
// word-boundary splitting for any sentence that alone still exceeds it. Every
// sub-fragment carries the same section's heading path as its Context.
func splitOversized(text, heading string, path []string, level int, cfg Config, tok Tokenizer, out *[]Fragment, startIndex int) []Fragment {
	sentences := splitSentences(text)
	var group []string
	groupTokens := 0

	flush := func() {
		if len(group) == 0 {
			return
		}
		joined := strings.Join(group, " ")
		*out = append(*out, Fragment{
			Text:    joined,
			Heading: heading,
			Context: path,
			Level:   level,
			Index:   len(*out),
			Method:  MethodFallback,
		})
		group = nil
		groupTokens = 0
	}

	for _, sent := range sentences {
		n := tok.Count(sent)
		if n > cfg.MaxTokens {
			flush()
			for _, word := range splitWords(sent, cfg.MaxTokens, tok) {
				*out = append(*out, Fragment{
					Text:    word,
					Heading: heading,
					Context: path,
					Level:   level,
					Index:   len(*out),
					Method:  MethodFallback,
				})
			}
			continue
		}
		if groupTokens+n > cfg.MaxTokens && len(group) > 0 {
			flush()
		}
		group = append(group, sent)
		groupTokens += n
	}
	flush()
	return *out
}

func splitSentences(text string) []string {
	matches := sentenceRe.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}

// splitWords groups words up to maxTokens for a single sentence that alone
// exceeds the chunk budget.
func splitWords(text string, maxTokens int, tok Tokenizer) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var out []string
	var group []string
	for _, w := range words {
		group = append(group, w)
		if tok.Count(strings.Join(group, " ")) >= maxTokens {
			out = append(out, strings.Join(group, " "))
			group = nil
		}
	}
	if len(group) > 0 {
		out = append(out, strings.Join(group, " "))
	}
	return out
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
