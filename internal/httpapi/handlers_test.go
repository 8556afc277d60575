package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/chunk"
	"ragcore/internal/convert"
	"ragcore/internal/embedder"
	"ragcore/internal/ingest"
	"ragcore/internal/model"
	"ragcore/internal/readings"
	"ragcore/internal/retrieve"
	"ragcore/internal/storage"
	"ragcore/internal/validate"
)

type stubWebFetcher struct{ data []byte }

func (s stubWebFetcher) Fetch(context.Context, model.SourceDescriptor) (ingest.Fetched, error) {
	return ingest.Fetched{Data: s.data, Format: "md"}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store := storage.NewMemory()
	emb := embedder.NewDeterministic(16)

	_, err := store.UpsertDocument(context.Background(), model.Document{DocumentID: "doc-1", Title: "Doc One", ContentHash: "h1"})
	require.NoError(t, err)
	vecs, err := emb.Embed(context.Background(), []string{"widgets are great"})
	require.NoError(t, err)
	_, err = store.UpsertChunk(context.Background(), model.Chunk{
		ChunkID: "c1", DocumentID: "doc-1", Content: "widgets are great", Embedding: vecs[0], ContentHash: "c1h",
	})
	require.NoError(t, err)

	engine := retrieve.New(store, emb, 0, 0)

	pipeline := &ingest.Pipeline{
		Fetchers:  ingest.Fetchers{model.SourceWebURL: stubWebFetcher{data: []byte("# Title\n\nSome widget body text.\n")}},
		Converter: convert.NewRegistry(),
		Chunker:   chunk.Config{MaxTokens: 200},
		Embedder:  emb,
		Store:     store,
	}
	readingsSvc := readings.New(pipeline, readings.NewMemoryStore())

	v := validate.Build(validate.Lenient, []validate.Capability{validate.EmbedderReachable}, validate.Deps{Embedder: emb})

	return NewServer(nil, engine, readingsSvc, v, nil)
}

func TestHealthzAlwaysOK(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReportsValidatorResult(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestQueryEndpointReturnsResults(t *testing.T) {
	srv := newTestServer(t)
	body, err := json.Marshal(queryRequest{Query: "widgets are great", K: 5, Mode: model.ModeHybrid})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.NotEmpty(t, payload["results"])
}

func TestQueryEndpointRejectsEmptyQuery(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(queryRequest{Query: ""})
	req := httptest.NewRequest(http.MethodPost, "/query", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestWebRejectsEmptyURL(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(ingestWebRequest{URL: ""})
	req := httptest.NewRequest(http.MethodPost, "/ingest/web", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestDriveRejectsEmptyDriveFileID(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(ingestDriveRequest{DriveFileID: ""})
	req := httptest.NewRequest(http.MethodPost, "/ingest/drive", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestWebRejectsInvalidTenant(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(ingestWebRequest{URL: "https://example.com", Tenant: "../escape"})
	req := httptest.NewRequest(http.MethodPost, "/ingest/web", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadingsSaveAndGet(t *testing.T) {
	srv := newTestServer(t)
	body, _ := json.Marshal(readingsSaveRequest{URL: "https://example.com/widgets", Tenant: "acme"})
	req := httptest.NewRequest(http.MethodPost, "/readings/save", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var saved model.Reading
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	require.NotEmpty(t, saved.ReadingID)

	getReq := httptest.NewRequest(http.MethodGet, "/readings/"+saved.ReadingID, nil)
	getRec := httptest.NewRecorder()
	srv.ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)
}
