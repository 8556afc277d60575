package readings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/chunk"
	"ragcore/internal/convert"
	"ragcore/internal/embedder"
	"ragcore/internal/ingest"
	"ragcore/internal/model"
	"ragcore/internal/storage"
)

type stubWebFetcher struct {
	data []byte
}

func (s stubWebFetcher) Fetch(context.Context, model.SourceDescriptor) (ingest.Fetched, error) {
	return ingest.Fetched{Data: s.data, Format: "md"}, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	pipeline := &ingest.Pipeline{
		Fetchers: ingest.Fetchers{
			model.SourceWebURL: stubWebFetcher{data: []byte("# Widgets\n\nWidgets are great. They come in many colors.\n- fast\n- cheap\n")},
		},
		Converter: convert.NewRegistry(),
		Chunker:   chunk.Config{MaxTokens: 200},
		Embedder:  embedder.NewDeterministic(16),
		Store:     storage.NewMemory(),
	}
	return New(pipeline, NewMemoryStore())
}

func TestSaveWebURLProducesHydratedReading(t *testing.T) {
	svc := newTestService(t)
	reading, err := svc.Save(context.Background(), "https://example.com/widgets", "acme")
	require.NoError(t, err)
	assert.Equal(t, model.URLKindWeb, reading.URLKind)
	assert.NotEmpty(t, reading.Summary)
	assert.NotEmpty(t, reading.KeyPoints)
	assert.NotNil(t, reading.Document)
}

func TestSaveYouTubeURLDetectsKind(t *testing.T) {
	svc := newTestService(t)
	reading, err := svc.Save(context.Background(), "https://www.youtube.com/watch?v=abc123", "acme")
	require.NoError(t, err)
	assert.Equal(t, model.URLKindYouTube, reading.URLKind)
	assert.Equal(t, "abc123", reading.KindSpecific["video_id"])
}

func TestGetReturnsSavedReading(t *testing.T) {
	svc := newTestService(t)
	saved, err := svc.Save(context.Background(), "https://example.com/widgets", "acme")
	require.NoError(t, err)

	fetched, err := svc.Get(context.Background(), saved.ReadingID)
	require.NoError(t, err)
	assert.Equal(t, saved.URL, fetched.URL)
}

func TestSaveInvalidURLErrors(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Save(context.Background(), "not-a-url", "acme")
	require.Error(t, err)
}
