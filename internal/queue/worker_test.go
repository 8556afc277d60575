package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/chunk"
	"ragcore/internal/convert"
	"ragcore/internal/embedder"
	"ragcore/internal/errs"
	"ragcore/internal/ingest"
	"ragcore/internal/model"
	"ragcore/internal/storage"
)

type stubFetcher struct {
	data []byte
	err  error
}

func (s stubFetcher) Fetch(context.Context, model.SourceDescriptor) (ingest.Fetched, error) {
	if s.err != nil {
		return ingest.Fetched{}, s.err
	}
	return ingest.Fetched{Data: s.data, Format: "md"}, nil
}

func newTestWorker(fetcher ingest.Fetcher, side SideStore) *Worker {
	pipeline := &ingest.Pipeline{
		Fetchers:  ingest.Fetchers{model.SourceLocalFile: fetcher},
		Converter: convert.NewRegistry(),
		Chunker:   chunk.Config{MaxTokens: 200},
		Embedder:  embedder.NewDeterministic(16),
		Store:     storage.NewMemory(),
	}
	return &Worker{Side: side, Pipeline: pipeline, JobTimeout: DefaultJobTimeout, Visibility: DefaultVisibilityTimeout, MaxAttempts: 1}
}

func TestProcessPersistsFinishedJobRecord(t *testing.T) {
	side := NewMemorySideStore()
	w := newTestWorker(stubFetcher{data: []byte("# Title\n\nSome widget body text.\n")}, side)

	job := model.Job{JobID: "job-1", Payload: model.SourceDescriptor{Kind: model.SourceLocalFile, Locator: "doc.md"}, Status: model.JobQueued}
	w.process(context.Background(), job)

	got, err := getJobRecord(context.Background(), side, "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobFinished, got.Status)
	require.NotNil(t, got.Result)
	assert.GreaterOrEqual(t, got.Result.DocumentsIngested, 1)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.FinishedAt)
	assert.Nil(t, got.Error)
}

func TestProcessPersistsFailedJobRecord(t *testing.T) {
	side := NewMemorySideStore()
	w := newTestWorker(stubFetcher{err: assert.AnError}, side)

	job := model.Job{JobID: "job-2", Payload: model.SourceDescriptor{Kind: model.SourceLocalFile, Locator: "doc.md"}, Status: model.JobQueued}
	w.process(context.Background(), job)

	got, err := getJobRecord(context.Background(), side, "job-2")
	require.NoError(t, err)
	assert.Equal(t, model.JobFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Nil(t, got.Result)
}

func TestGetJobRecordMissingReturnsIndexMissing(t *testing.T) {
	side := NewMemorySideStore()
	_, err := getJobRecord(context.Background(), side, "does-not-exist")
	require.Error(t, err)
	assert.Equal(t, errs.IndexMissing, errs.KindOf(err))
}
