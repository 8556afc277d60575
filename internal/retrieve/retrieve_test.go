package retrieve

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ragcore/internal/embedder"
	"ragcore/internal/model"
	"ragcore/internal/storage"
)

func seedChunk(t *testing.T, store storage.Adapter, emb embedder.Client, documentID, content string, index int) {
	t.Helper()
	vecs, err := emb.Embed(context.Background(), []string{content})
	require.NoError(t, err)
	_, err = store.UpsertChunk(context.Background(), model.Chunk{
		ChunkID:     documentID + "-" + content,
		DocumentID:  documentID,
		ChunkIndex:  index,
		Content:     content,
		Embedding:   vecs[0],
		ContentHash: content,
	})
	require.NoError(t, err)
}

func newEngine(t *testing.T) (*Engine, storage.Adapter, embedder.Client) {
	t.Helper()
	store := storage.NewMemory()
	emb := embedder.NewDeterministic(16)
	_, err := store.UpsertDocument(context.Background(), model.Document{
		DocumentID: "doc-1", Title: "Doc One", ContentHash: "doc-1-hash",
	})
	require.NoError(t, err)
	return New(store, emb, 0, 0), store, emb
}

func TestQueryHybridFusesBothBranches(t *testing.T) {
	engine, store, emb := newEngine(t)
	seedChunk(t, store, emb, "doc-1", "kubernetes networking overview", 0)
	seedChunk(t, store, emb, "doc-1", "unrelated cooking recipe", 1)

	results, warnings, err := engine.Query(context.Background(), "kubernetes networking overview", 5, model.Filter{}, model.ModeHybrid)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.NotEmpty(t, results)
	require.Equal(t, "doc-1-kubernetes networking overview", results[0].Chunk.ChunkID)
	require.Greater(t, results[0].Score, 0.0)
}

func TestQuerySemanticOnlySkipsFusion(t *testing.T) {
	engine, store, emb := newEngine(t)
	seedChunk(t, store, emb, "doc-1", "a distinctive phrase", 0)

	results, warnings, err := engine.Query(context.Background(), "a distinctive phrase", 5, model.Filter{}, model.ModeSemantic)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Len(t, results, 1)
}

func TestQueryDegradesWhenLexicalBranchFails(t *testing.T) {
	engine, store, emb := newEngine(t)
	seedChunk(t, store, emb, "doc-1", "graceful degradation example", 0)
	engine.Store = failingTextStore{Adapter: store}

	results, warnings, err := engine.Query(context.Background(), "graceful degradation example", 5, model.Filter{}, model.ModeHybrid)
	require.NoError(t, err)
	require.NotEmpty(t, warnings)
	require.NotEmpty(t, results)
}

func TestQueryErrorsWhenBothBranchesFail(t *testing.T) {
	engine, store, _ := newEngine(t)
	engine.Store = failingStore{Adapter: store}

	_, _, err := engine.Query(context.Background(), "anything", 5, model.Filter{}, model.ModeHybrid)
	require.Error(t, err)
}

type failingTextStore struct {
	storage.Adapter
}

func (failingTextStore) TextSearch(_ context.Context, _ storage.TextQuery) ([]storage.ScoredChunkID, error) {
	return nil, errBoom
}

type failingStore struct {
	storage.Adapter
}

func (failingStore) TextSearch(_ context.Context, _ storage.TextQuery) ([]storage.ScoredChunkID, error) {
	return nil, errBoom
}

func (failingStore) VectorSearch(_ context.Context, _ storage.VectorQuery) ([]storage.ScoredChunkID, error) {
	return nil, errBoom
}

var errBoom = errBoomType{}

type errBoomType struct{}

func (errBoomType) Error() string { return "boom" }
