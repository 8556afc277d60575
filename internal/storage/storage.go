// Package storage defines the Storage Adapter: a single contract for
// document/chunk persistence, vector search, and lexical search, behind
// which a Postgres backend, a Qdrant backend, and an in-memory backend
// (for tests and local development) are interchangeable.
package storage

import (
	"context"

	"ragcore/internal/model"
)

// VectorQuery describes a nearest-neighbour search.
type VectorQuery struct {
	Embedding []float32
	TopK      int
	Filter    model.Filter
}

// TextQuery describes a lexical search.
type TextQuery struct {
	Text   string
	TopK   int
	Filter model.Filter
}

// ScoredChunkID pairs a chunk identifier with its rank-contributing score
// from one retrieval branch (cosine similarity or text rank, not yet fused).
type ScoredChunkID struct {
	ChunkID string
	Score   float64
}

// Adapter is the contract every storage backend implements. Document and
// chunk upserts are idempotent on content hash: calling UpsertDocument or
// UpsertChunk twice with the same ContentHash within the same partition is a
// no-op on the second call, returning the existing ID.
type Adapter interface {
	// UpsertDocument inserts or, if a document already exists with the same
	// ContentHash in the same (Tenant, SourceGroup) partition, returns the
	// existing document unchanged.
	UpsertDocument(ctx context.Context, doc model.Document) (model.Document, error)
	GetDocument(ctx context.Context, documentID string) (model.Document, error)

	// FindDocumentByHash looks up a document by its dedup key without
	// writing anything, so callers can short-circuit chunking/embedding
	// before doing either. found is false when no such document exists.
	FindDocumentByHash(ctx context.Context, tenant, sourceGroup, contentHash string) (doc model.Document, found bool, err error)

	// UpsertChunk inserts or, if a chunk already exists with the same
	// ContentHash under the same document, returns the existing chunk
	// unchanged.
	UpsertChunk(ctx context.Context, chunk model.Chunk) (model.Chunk, error)
	GetChunksByDocument(ctx context.Context, documentID string) ([]model.Chunk, error)

	// VectorSearch returns the TopK chunk IDs nearest to q.Embedding.
	VectorSearch(ctx context.Context, q VectorQuery) ([]ScoredChunkID, error)
	// TextSearch returns the TopK chunk IDs best matching q.Text lexically.
	TextSearch(ctx context.Context, q TextQuery) ([]ScoredChunkID, error)

	// HydrateChunks loads full Chunk + owning Document metadata for ids, in
	// the partition described by filter. Unknown ids are silently dropped.
	HydrateChunks(ctx context.Context, ids []string, filter model.Filter) ([]model.HydratedChunk, error)

	// Ping verifies connectivity and basic schema presence.
	Ping(ctx context.Context) error

	Close() error
}
