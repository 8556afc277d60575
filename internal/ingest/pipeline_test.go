package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/chunk"
	"ragcore/internal/convert"
	"ragcore/internal/embedder"
	"ragcore/internal/model"
	"ragcore/internal/storage"
)

type stubFetcher struct {
	data   []byte
	format string
}

func (s stubFetcher) Fetch(context.Context, model.SourceDescriptor) (Fetched, error) {
	return Fetched{Data: s.data, Format: s.format}, nil
}

func newTestPipeline(data, format string) (*Pipeline, storage.Adapter) {
	store := storage.NewMemory()
	p := &Pipeline{
		Fetchers:  Fetchers{model.SourceLocalFile: stubFetcher{data: []byte(data), format: format}},
		Converter: convert.NewRegistry(),
		Chunker:   chunk.Config{MaxTokens: 200},
		Embedder:  embedder.NewDeterministic(16),
		Store:     store,
	}
	return p, store
}

func TestIngestNewDocumentProducesChunks(t *testing.T) {
	p, store := newTestPipeline("# Title\n\nSome body text about widgets.\n", "md")
	ctx := context.Background()

	report, err := p.Ingest(ctx, model.SourceDescriptor{Kind: model.SourceLocalFile, Locator: "doc1.md", Tenant: "acme"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.DocumentsIngested)
	assert.Greater(t, report.ChunksIngested, 0)
	_ = store
}

func TestIngestChunksCarryHeadingContext(t *testing.T) {
	paragraph := "some widget body text repeated to pad the section out a bit more so it reads naturally"
	doc := "# A\n\n" + paragraph + "\n\n# B\n\n" + paragraph + "\n\n# C\n\n" + paragraph + "\n"
	p, store := newTestPipeline(doc, "md")
	ctx := context.Background()

	report, err := p.Ingest(ctx, model.SourceDescriptor{Kind: model.SourceLocalFile, Locator: "doc1.md", Tenant: "acme"})
	require.NoError(t, err)
	require.Equal(t, 3, report.ChunksIngested)

	chunks, err := store.GetChunksByDocument(ctx, report.Document.DocumentID)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	byIndex := map[int][]string{}
	for _, c := range chunks {
		byIndex[c.ChunkIndex] = c.Context
	}
	assert.Equal(t, []string{"A"}, byIndex[0])
	assert.Equal(t, []string{"B"}, byIndex[1])
	assert.Equal(t, []string{"C"}, byIndex[2])
}

func TestIngestDuplicateContentShortCircuits(t *testing.T) {
	p, _ := newTestPipeline("# Title\n\nDuplicate content here.\n", "md")
	ctx := context.Background()

	r1, err := p.Ingest(ctx, model.SourceDescriptor{Kind: model.SourceLocalFile, Locator: "doc1.md", Tenant: "acme"})
	require.NoError(t, err)
	require.Equal(t, 1, r1.DocumentsIngested)

	r2, err := p.Ingest(ctx, model.SourceDescriptor{Kind: model.SourceLocalFile, Locator: "doc2.md", Tenant: "acme"})
	require.NoError(t, err)
	assert.Equal(t, 0, r2.DocumentsIngested)
	assert.Equal(t, 0, r2.ChunksIngested)
}

func TestIngestFetchFailureReportsWarningNotError(t *testing.T) {
	store := storage.NewMemory()
	p := &Pipeline{
		Fetchers:  Fetchers{}, // no fetcher registered for local_file
		Converter: convert.NewRegistry(),
		Chunker:   chunk.Config{MaxTokens: 200},
		Embedder:  embedder.NewDeterministic(16),
		Store:     store,
	}
	report, err := p.Ingest(context.Background(), model.SourceDescriptor{Kind: model.SourceLocalFile, Locator: "missing.md"})
	require.NoError(t, err)
	assert.Equal(t, 0, report.DocumentsIngested)
	assert.NotEmpty(t, report.Warnings)
}
