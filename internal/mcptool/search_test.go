package mcptool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/embedder"
	"ragcore/internal/model"
	"ragcore/internal/retrieve"
	"ragcore/internal/storage"
)

func newTestKB(t *testing.T) *KnowledgeBase {
	t.Helper()
	store := storage.NewMemory()
	emb := embedder.NewDeterministic(16)

	_, err := store.UpsertDocument(context.Background(), model.Document{DocumentID: "doc-1", Title: "Widget Guide", ContentHash: "h1"})
	require.NoError(t, err)
	vecs, err := emb.Embed(context.Background(), []string{"widgets are great and come in many colors"})
	require.NoError(t, err)
	_, err = store.UpsertChunk(context.Background(), model.Chunk{
		ChunkID:     "c1",
		DocumentID:  "doc-1",
		Content:     "widgets are great and come in many colors",
		Embedding:   vecs[0],
		ContentHash: "c1h",
	})
	require.NoError(t, err)

	return &KnowledgeBase{Retrieval: retrieve.New(store, emb, 0, 0)}
}

func TestSearchRendersResults(t *testing.T) {
	kb := newTestKB(t)
	out := kb.Search(context.Background(), SearchInput{Query: "widgets are great", MatchCount: 3})
	assert.Contains(t, out, "--- Document 1: Widget Guide (relevance:")
	assert.Contains(t, out, "widgets are great")
}

func TestSearchEmptyQueryReturnsErrorString(t *testing.T) {
	kb := newTestKB(t)
	out := kb.Search(context.Background(), SearchInput{Query: "  "})
	assert.Equal(t, "Error searching knowledge base: query is required", out)
}

func TestSearchNoResultsWhenStoreIsEmpty(t *testing.T) {
	store := storage.NewMemory()
	emb := embedder.NewDeterministic(16)
	kb := &KnowledgeBase{Retrieval: retrieve.New(store, emb, 0, 0)}
	out := kb.Search(context.Background(), SearchInput{Query: "anything"})
	assert.Equal(t, "No relevant information found in the knowledge base.", out)
}
