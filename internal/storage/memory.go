package storage

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"ragcore/internal/errs"
	"ragcore/internal/model"
)

// Memory is an in-process Adapter backed by maps. It is a first-class test
// double — not a mock — used in unit tests and local development in place
// of Postgres/Qdrant.
type Memory struct {
	mu sync.RWMutex

	docsByID   map[string]model.Document
	docsByHash map[partitionHash]string // (tenant,source_group,content_hash) -> document_id

	chunksByID    map[string]model.Chunk
	chunksByDoc   map[string][]string
	chunksByHash  map[string]string // document_id + "|" + content_hash -> chunk_id
	chunkDocOwner map[string]string // chunk_id -> document_id
}

type partitionHash struct {
	tenant      string
	sourceGroup string
	contentHash string
}

// NewMemory constructs an empty in-memory Adapter.
func NewMemory() *Memory {
	return &Memory{
		docsByID:      make(map[string]model.Document),
		docsByHash:    make(map[partitionHash]string),
		chunksByID:    make(map[string]model.Chunk),
		chunksByDoc:   make(map[string][]string),
		chunksByHash:  make(map[string]string),
		chunkDocOwner: make(map[string]string),
	}
}

func (m *Memory) UpsertDocument(_ context.Context, doc model.Document) (model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := partitionHash{tenant: doc.Tenant, sourceGroup: doc.SourceGroup, contentHash: doc.ContentHash}
	if existingID, ok := m.docsByHash[key]; ok {
		return m.docsByID[existingID], nil
	}
	m.docsByID[doc.DocumentID] = doc
	m.docsByHash[key] = doc.DocumentID
	return doc, nil
}

func (m *Memory) FindDocumentByHash(_ context.Context, tenant, sourceGroup, contentHash string) (model.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key := partitionHash{tenant: tenant, sourceGroup: sourceGroup, contentHash: contentHash}
	id, ok := m.docsByHash[key]
	if !ok {
		return model.Document{}, false, nil
	}
	return m.docsByID[id], true, nil
}

func (m *Memory) GetDocument(_ context.Context, documentID string) (model.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docsByID[documentID]
	if !ok {
		return model.Document{}, errs.New(errs.IndexMissing, "document not found: "+documentID)
	}
	return doc, nil
}

func (m *Memory) UpsertChunk(_ context.Context, chunk model.Chunk) (model.Chunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := chunk.DocumentID + "|" + chunk.ContentHash
	if existingID, ok := m.chunksByHash[key]; ok {
		return m.chunksByID[existingID], nil
	}
	m.chunksByID[chunk.ChunkID] = chunk
	m.chunksByHash[key] = chunk.ChunkID
	m.chunksByDoc[chunk.DocumentID] = append(m.chunksByDoc[chunk.DocumentID], chunk.ChunkID)
	m.chunkDocOwner[chunk.ChunkID] = chunk.DocumentID
	return chunk, nil
}

func (m *Memory) GetChunksByDocument(_ context.Context, documentID string) ([]model.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.chunksByDoc[documentID]
	out := make([]model.Chunk, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.chunksByID[id])
	}
	return out, nil
}

func (m *Memory) matchesFilter(doc model.Document, filter model.Filter) bool {
	if filter.Tenant != "" && doc.Tenant != filter.Tenant {
		return false
	}
	if filter.SourceGroup != "" && doc.SourceGroup != filter.SourceGroup {
		return false
	}
	return true
}

func (m *Memory) VectorSearch(_ context.Context, q VectorQuery) ([]ScoredChunkID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		id    string
		score float64
	}
	var candidates []scored
	for id, chunk := range m.chunksByID {
		if len(chunk.Embedding) == 0 {
			continue
		}
		docID := m.chunkDocOwner[id]
		doc, ok := m.docsByID[docID]
		if !ok || !m.matchesFilter(doc, q.Filter) {
			continue
		}
		candidates = append(candidates, scored{id: id, score: cosine(q.Embedding, chunk.Embedding)})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	topK := q.TopK
	if topK <= 0 || topK > len(candidates) {
		topK = len(candidates)
	}
	out := make([]ScoredChunkID, 0, topK)
	for _, c := range candidates[:topK] {
		out = append(out, ScoredChunkID{ChunkID: c.id, Score: c.score})
	}
	return out, nil
}

func (m *Memory) TextSearch(_ context.Context, q TextQuery) ([]ScoredChunkID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(q.Text))
	type scored struct {
		id    string
		score float64
	}
	var candidates []scored
	for id, chunk := range m.chunksByID {
		docID := m.chunkDocOwner[id]
		doc, ok := m.docsByID[docID]
		if !ok || !m.matchesFilter(doc, q.Filter) {
			continue
		}
		lower := strings.ToLower(chunk.Content)
		var score float64
		for _, term := range terms {
			if term == "" {
				continue
			}
			score += float64(strings.Count(lower, term))
		}
		if score > 0 {
			candidates = append(candidates, scored{id: id, score: score})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	topK := q.TopK
	if topK <= 0 || topK > len(candidates) {
		topK = len(candidates)
	}
	out := make([]ScoredChunkID, 0, topK)
	for _, c := range candidates[:topK] {
		out = append(out, ScoredChunkID{ChunkID: c.id, Score: c.score})
	}
	return out, nil
}

func (m *Memory) HydrateChunks(_ context.Context, ids []string, filter model.Filter) ([]model.HydratedChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.HydratedChunk, 0, len(ids))
	for _, id := range ids {
		chunk, ok := m.chunksByID[id]
		if !ok {
			continue
		}
		doc, ok := m.docsByID[m.chunkDocOwner[id]]
		if !ok || !m.matchesFilter(doc, filter) {
			continue
		}
		out = append(out, model.HydratedChunk{
			Chunk:         chunk,
			DocumentTitle: doc.Title,
			SourceLocator: doc.SourceLocator,
		})
	}
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }
func (m *Memory) Close() error                { return nil }

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
