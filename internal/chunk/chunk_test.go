package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/convert"
)

func TestSplitStructureAwareWhenWithinBudget(t *testing.T) {
	doc := convert.CanonicalDocument{
		Outline: []convert.Section{
			{Heading: "Intro", Content: "This is a short section.", Level: 1},
			{Heading: "Body", Content: "Another short section.", Level: 1},
		},
	}
	fragments := Split(doc, Config{MaxTokens: 50})
	require.Len(t, fragments, 2)
	assert.Equal(t, MethodStructureAware, fragments[0].Method)
	assert.Equal(t, "Intro", fragments[0].Heading)
}

func TestSplitContextCarriesHeadingPath(t *testing.T) {
	paragraph := strings.Repeat("word ", 200)
	doc := convert.CanonicalDocument{
		Outline: []convert.Section{
			{Heading: "A", Content: paragraph, Level: 1},
			{Heading: "B", Content: paragraph, Level: 1},
			{Heading: "C", Content: paragraph, Level: 1},
		},
	}
	fragments := Split(doc, Config{MaxTokens: 500})
	require.Len(t, fragments, 3)
	assert.Equal(t, []string{"A"}, fragments[0].Context)
	assert.Equal(t, []string{"B"}, fragments[1].Context)
	assert.Equal(t, []string{"C"}, fragments[2].Context)
}

func TestSplitContextCarriesAncestorPathForNestedHeadings(t *testing.T) {
	doc := convert.CanonicalDocument{
		Outline: []convert.Section{
			{
				Heading: "Parent",
				Level:   1,
				Children: []convert.Section{
					{Heading: "Child", Content: "Nested section body.", Level: 2},
				},
			},
		},
	}
	fragments := Split(doc, Config{MaxTokens: 50})
	require.Len(t, fragments, 1)
	assert.Equal(t, []string{"Parent", "Child"}, fragments[0].Context)
}

func TestSplitFallsBackToSentenceBoundary(t *testing.T) {
	longContent := strings.Repeat("This is one sentence of moderate length. ", 30)
	doc := convert.CanonicalDocument{
		Outline: []convert.Section{{Heading: "Big", Content: longContent, Level: 1}},
	}
	fragments := Split(doc, Config{MaxTokens: 20})
	require.NotEmpty(t, fragments)
	for _, f := range fragments {
		assert.Equal(t, MethodFallback, f.Method)
		assert.LessOrEqual(t, WhitespaceTokenizer{}.Count(f.Text), 40) // some slack for grouping boundary
	}
}

func TestSplitFallsBackToWordBoundaryForOversizedSentence(t *testing.T) {
	words := make([]string, 200)
	for i := range words {
		words[i] = "word"
	}
	oneGiantSentence := strings.Join(words, " ") + "."
	doc := convert.CanonicalDocument{
		Outline: []convert.Section{{Heading: "Wall", Content: oneGiantSentence, Level: 1}},
	}
	fragments := Split(doc, Config{MaxTokens: 10})
	require.Greater(t, len(fragments), 1)
	for _, f := range fragments {
		assert.Equal(t, MethodFallback, f.Method)
	}
}
