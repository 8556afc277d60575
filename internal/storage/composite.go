package storage

import (
	"context"

	"ragcore/internal/errs"
	"ragcore/internal/model"
)

// DocStore is the subset of Adapter concerned with document/chunk
// persistence and lexical search — what Postgres (and Memory) implement.
type DocStore interface {
	UpsertDocument(ctx context.Context, doc model.Document) (model.Document, error)
	GetDocument(ctx context.Context, documentID string) (model.Document, error)
	FindDocumentByHash(ctx context.Context, tenant, sourceGroup, contentHash string) (model.Document, bool, error)
	UpsertChunk(ctx context.Context, chunk model.Chunk) (model.Chunk, error)
	GetChunksByDocument(ctx context.Context, documentID string) ([]model.Chunk, error)
	TextSearch(ctx context.Context, q TextQuery) ([]ScoredChunkID, error)
	HydrateChunks(ctx context.Context, ids []string, filter model.Filter) ([]model.HydratedChunk, error)
	Ping(ctx context.Context) error
	Close() error
}

// VectorStore is the subset of vector-only backends (Qdrant).
type VectorStore interface {
	Upsert(ctx context.Context, chunk model.Chunk, tenant, sourceGroup string) error
	VectorSearch(ctx context.Context, q VectorQuery) ([]ScoredChunkID, error)
	Ping(ctx context.Context) error
	Close() error
}

// Composite implements Adapter by pairing a DocStore (e.g. Postgres) with a
// separate VectorStore (e.g. Qdrant): chunk upserts land in both, vector
// search is delegated to the VectorStore, everything else to the DocStore.
type Composite struct {
	Docs   DocStore
	Vector VectorStore
}

// NewComposite pairs docs and vector into one Adapter.
func NewComposite(docs DocStore, vector VectorStore) *Composite {
	return &Composite{Docs: docs, Vector: vector}
}

func (c *Composite) UpsertDocument(ctx context.Context, doc model.Document) (model.Document, error) {
	return c.Docs.UpsertDocument(ctx, doc)
}

func (c *Composite) GetDocument(ctx context.Context, documentID string) (model.Document, error) {
	return c.Docs.GetDocument(ctx, documentID)
}

func (c *Composite) FindDocumentByHash(ctx context.Context, tenant, sourceGroup, contentHash string) (model.Document, bool, error) {
	return c.Docs.FindDocumentByHash(ctx, tenant, sourceGroup, contentHash)
}

// UpsertChunk writes the chunk record first, then indexes its embedding in
// the vector store if present; the chunk write wins on ordering so a
// successful UpsertChunk always has a retrievable record even if vector
// indexing subsequently fails.
func (c *Composite) UpsertChunk(ctx context.Context, chunk model.Chunk) (model.Chunk, error) {
	stored, err := c.Docs.UpsertChunk(ctx, chunk)
	if err != nil {
		return model.Chunk{}, err
	}
	if len(chunk.Embedding) > 0 {
		doc, derr := c.Docs.GetDocument(ctx, chunk.DocumentID)
		if derr != nil {
			return stored, errs.Wrap(errs.Internal, "resolve partition for vector index", derr)
		}
		if err := c.Vector.Upsert(ctx, chunk, doc.Tenant, doc.SourceGroup); err != nil {
			return stored, err
		}
	}
	return stored, nil
}

func (c *Composite) GetChunksByDocument(ctx context.Context, documentID string) ([]model.Chunk, error) {
	return c.Docs.GetChunksByDocument(ctx, documentID)
}

func (c *Composite) VectorSearch(ctx context.Context, q VectorQuery) ([]ScoredChunkID, error) {
	return c.Vector.VectorSearch(ctx, q)
}

func (c *Composite) TextSearch(ctx context.Context, q TextQuery) ([]ScoredChunkID, error) {
	return c.Docs.TextSearch(ctx, q)
}

func (c *Composite) HydrateChunks(ctx context.Context, ids []string, filter model.Filter) ([]model.HydratedChunk, error) {
	return c.Docs.HydrateChunks(ctx, ids, filter)
}

func (c *Composite) Ping(ctx context.Context) error {
	if err := c.Docs.Ping(ctx); err != nil {
		return err
	}
	return c.Vector.Ping(ctx)
}

func (c *Composite) Close() error {
	err1 := c.Docs.Close()
	err2 := c.Vector.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
