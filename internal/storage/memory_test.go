package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/model"
)

func TestMemoryDocumentIdempotency(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	doc := model.Document{
		DocumentID:  "doc-1",
		Title:       "First",
		ContentHash: "hash-a",
		Tenant:      "acme",
		SourceGroup: "kb",
		IngestedAt:  time.Now(),
	}
	got1, err := m.UpsertDocument(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got1.DocumentID)

	dup := doc
	dup.DocumentID = "doc-2"
	dup.Title = "Different title, same hash"
	got2, err := m.UpsertDocument(ctx, dup)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got2.DocumentID, "same content hash in the same partition should coexist as one record")
}

func TestMemoryChunkIdempotencyAndSearch(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	doc := model.Document{DocumentID: "doc-1", ContentHash: "h1", Tenant: "acme", SourceGroup: "kb"}
	_, err := m.UpsertDocument(ctx, doc)
	require.NoError(t, err)

	chunk := model.Chunk{
		ChunkID:     "chunk-1",
		DocumentID:  "doc-1",
		Content:     "the quick brown fox",
		ContentHash: "ch1",
		Embedding:   []float32{1, 0, 0},
	}
	_, err = m.UpsertChunk(ctx, chunk)
	require.NoError(t, err)

	dup := chunk
	dup.ChunkID = "chunk-2"
	got, err := m.UpsertChunk(ctx, dup)
	require.NoError(t, err)
	assert.Equal(t, "chunk-1", got.ChunkID)

	results, err := m.TextSearch(ctx, TextQuery{Text: "quick fox", TopK: 5, Filter: model.Filter{Tenant: "acme"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "chunk-1", results[0].ChunkID)

	vresults, err := m.VectorSearch(ctx, VectorQuery{Embedding: []float32{1, 0, 0}, TopK: 5, Filter: model.Filter{Tenant: "acme"}})
	require.NoError(t, err)
	require.Len(t, vresults, 1)
	assert.InDelta(t, 1.0, vresults[0].Score, 1e-6)
}

func TestMemoryHydrateChunksFiltersByPartition(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.UpsertDocument(ctx, model.Document{DocumentID: "d1", ContentHash: "h1", Tenant: "acme", SourceGroup: "kb", Title: "Doc One"})
	require.NoError(t, err)
	_, err = m.UpsertChunk(ctx, model.Chunk{ChunkID: "c1", DocumentID: "d1", Content: "hello", ContentHash: "ch1"})
	require.NoError(t, err)

	hydrated, err := m.HydrateChunks(ctx, []string{"c1"}, model.Filter{Tenant: "other"})
	require.NoError(t, err)
	assert.Empty(t, hydrated)

	hydrated, err = m.HydrateChunks(ctx, []string{"c1"}, model.Filter{Tenant: "acme"})
	require.NoError(t, err)
	require.Len(t, hydrated, 1)
	assert.Equal(t, "Doc One", hydrated[0].DocumentTitle)
}
