package storage

import (
	"context"
	"sort"
	"sync"

	"ragcore/internal/model"
)

// MemoryVector is a standalone VectorStore, usable paired with a Postgres
// DocStore when Postgres is configured as the document backend but no
// Qdrant endpoint is available (e.g. local development).
type MemoryVector struct {
	mu      sync.RWMutex
	vectors map[string]vectorEntry
}

type vectorEntry struct {
	embedding   []float32
	tenant      string
	sourceGroup string
}

// NewMemoryVector constructs an empty MemoryVector.
func NewMemoryVector() *MemoryVector {
	return &MemoryVector{vectors: make(map[string]vectorEntry)}
}

func (v *MemoryVector) Upsert(_ context.Context, chunk model.Chunk, tenant, sourceGroup string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.vectors[chunk.ChunkID] = vectorEntry{embedding: chunk.Embedding, tenant: tenant, sourceGroup: sourceGroup}
	return nil
}

func (v *MemoryVector) VectorSearch(_ context.Context, q VectorQuery) ([]ScoredChunkID, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	type scored struct {
		id    string
		score float64
	}
	var candidates []scored
	for id, entry := range v.vectors {
		if q.Filter.Tenant != "" && entry.tenant != q.Filter.Tenant {
			continue
		}
		if q.Filter.SourceGroup != "" && entry.sourceGroup != q.Filter.SourceGroup {
			continue
		}
		candidates = append(candidates, scored{id: id, score: cosine(q.Embedding, entry.embedding)})
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

func (v *MemoryVector) Ping(context.Context) error { return nil }
func (v *MemoryVector) Close() error               { return nil }
