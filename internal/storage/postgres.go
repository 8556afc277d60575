package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ragcore/internal/errs"
	"ragcore/internal/model"
)

// Postgres stores documents and chunks relationally and serves lexical
// search via PostgreSQL full-text search. Vector search is delegated to the
// configured vector backend (Qdrant or Memory) rather than pgvector, since
// the Storage Adapter treats vector and text search as separately pluggable
// concerns.
//
// Expected schema (bootstrapped by migrations, not by this package):
//
//	documents(document_id text pk, title text, source_locator text,
//	  source_kind text, content text, frontmatter jsonb, ingested_at timestamptz,
//	  content_hash text, tenant text, source_group text,
//	  unique(tenant, source_group, content_hash))
//	chunks(chunk_id text pk, document_id text references documents,
//	  chunk_index int, content text, token_count int, content_hash text,
//	  context jsonb, chunker_method text, metadata jsonb,
//	  unique(document_id, content_hash))
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to uri and returns a ready Postgres adapter.
func NewPostgres(ctx context.Context, uri string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, uri)
	if err != nil {
		return nil, errs.Wrap(errs.DependencyUnavailable, "connect postgres", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errs.Wrap(errs.DependencyUnavailable, "ping postgres", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) UpsertDocument(ctx context.Context, doc model.Document) (model.Document, error) {
	frontmatter, err := json.Marshal(doc.Frontmatter)
	if err != nil {
		return model.Document{}, errs.Wrap(errs.Internal, "marshal frontmatter", err)
	}

	const q = `
INSERT INTO documents (document_id, title, source_locator, source_kind, content, frontmatter, ingested_at, content_hash, tenant, source_group)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (tenant, source_group, content_hash) DO NOTHING
RETURNING document_id, title, source_locator, source_kind, content, frontmatter, ingested_at, content_hash, tenant, source_group`

	row := p.pool.QueryRow(ctx, q, doc.DocumentID, doc.Title, doc.SourceLocator, doc.SourceKind,
		doc.Content, frontmatter, doc.IngestedAt, doc.ContentHash, doc.Tenant, doc.SourceGroup)

	inserted, err := scanDocument(row)
	if err == nil {
		return inserted, nil
	}
	if err != pgx.ErrNoRows {
		return model.Document{}, errs.Wrap(errs.Internal, "upsert document", err)
	}

	// Conflict: another document with this content hash already exists in
	// the partition; fetch and return it instead.
	const fetch = `SELECT document_id, title, source_locator, source_kind, content, frontmatter, ingested_at, content_hash, tenant, source_group
FROM documents WHERE tenant=$1 AND source_group=$2 AND content_hash=$3`
	existing, ferr := scanDocument(p.pool.QueryRow(ctx, fetch, doc.Tenant, doc.SourceGroup, doc.ContentHash))
	if ferr != nil {
		return model.Document{}, errs.Wrap(errs.UpsertConflict, "fetch conflicting document", ferr)
	}
	return existing, nil
}

func scanDocument(row pgx.Row) (model.Document, error) {
	var d model.Document
	var frontmatter []byte
	if err := row.Scan(&d.DocumentID, &d.Title, &d.SourceLocator, &d.SourceKind, &d.Content,
		&frontmatter, &d.IngestedAt, &d.ContentHash, &d.Tenant, &d.SourceGroup); err != nil {
		return model.Document{}, err
	}
	if len(frontmatter) > 0 {
		_ = json.Unmarshal(frontmatter, &d.Frontmatter)
	}
	return d, nil
}

func (p *Postgres) FindDocumentByHash(ctx context.Context, tenant, sourceGroup, contentHash string) (model.Document, bool, error) {
	const q = `SELECT document_id, title, source_locator, source_kind, content, frontmatter, ingested_at, content_hash, tenant, source_group
FROM documents WHERE tenant=$1 AND source_group=$2 AND content_hash=$3`
	doc, err := scanDocument(p.pool.QueryRow(ctx, q, tenant, sourceGroup, contentHash))
	if err == pgx.ErrNoRows {
		return model.Document{}, false, nil
	}
	if err != nil {
		return model.Document{}, false, errs.Wrap(errs.Internal, "find document by hash", err)
	}
	return doc, true, nil
}

func (p *Postgres) GetDocument(ctx context.Context, documentID string) (model.Document, error) {
	const q = `SELECT document_id, title, source_locator, source_kind, content, frontmatter, ingested_at, content_hash, tenant, source_group
FROM documents WHERE document_id=$1`
	doc, err := scanDocument(p.pool.QueryRow(ctx, q, documentID))
	if err == pgx.ErrNoRows {
		return model.Document{}, errs.New(errs.IndexMissing, "document not found: "+documentID)
	}
	if err != nil {
		return model.Document{}, errs.Wrap(errs.Internal, "get document", err)
	}
	return doc, nil
}

func (p *Postgres) UpsertChunk(ctx context.Context, chunk model.Chunk) (model.Chunk, error) {
	context_, err := json.Marshal(chunk.Context)
	if err != nil {
		return model.Chunk{}, errs.Wrap(errs.Internal, "marshal chunk context", err)
	}
	metadata, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return model.Chunk{}, errs.Wrap(errs.Internal, "marshal chunk metadata", err)
	}

	const q = `
INSERT INTO chunks (chunk_id, document_id, chunk_index, content, token_count, content_hash, context, chunker_method, metadata)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (document_id, content_hash) DO NOTHING
RETURNING chunk_id, document_id, chunk_index, content, token_count, content_hash, context, chunker_method, metadata`

	inserted, err := scanChunk(p.pool.QueryRow(ctx, q, chunk.ChunkID, chunk.DocumentID, chunk.ChunkIndex,
		chunk.Content, chunk.TokenCount, chunk.ContentHash, context_, chunk.ChunkerMethod, metadata))
	if err == nil {
		return inserted, nil
	}
	if err != pgx.ErrNoRows {
		return model.Chunk{}, errs.Wrap(errs.Internal, "upsert chunk", err)
	}

	const fetch = `SELECT chunk_id, document_id, chunk_index, content, token_count, content_hash, context, chunker_method, metadata
FROM chunks WHERE document_id=$1 AND content_hash=$2`
	existing, ferr := scanChunk(p.pool.QueryRow(ctx, fetch, chunk.DocumentID, chunk.ContentHash))
	if ferr != nil {
		return model.Chunk{}, errs.Wrap(errs.UpsertConflict, "fetch conflicting chunk", ferr)
	}
	return existing, nil
}

func scanChunk(row pgx.Row) (model.Chunk, error) {
	var c model.Chunk
	var context_, metadata []byte
	if err := row.Scan(&c.ChunkID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.TokenCount,
		&c.ContentHash, &context_, &c.ChunkerMethod, &metadata); err != nil {
		return model.Chunk{}, err
	}
	if len(context_) > 0 {
		_ = json.Unmarshal(context_, &c.Context)
	}
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &c.Metadata)
	}
	return c, nil
}

func (p *Postgres) GetChunksByDocument(ctx context.Context, documentID string) ([]model.Chunk, error) {
	const q = `SELECT chunk_id, document_id, chunk_index, content, token_count, content_hash, context, chunker_method, metadata
FROM chunks WHERE document_id=$1 ORDER BY chunk_index ASC`
	rows, err := p.pool.Query(ctx, q, documentID)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "query chunks", err)
	}
	defer rows.Close()

	var out []model.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, errs.Wrap(errs.Internal, "scan chunk", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// VectorSearch is not implemented by the Postgres backend; callers should
// pair Postgres for document/chunk storage with a separate vector backend.
func (p *Postgres) VectorSearch(context.Context, VectorQuery) ([]ScoredChunkID, error) {
	return nil, errs.New(errs.DependencyUnavailable, "postgres backend does not implement vector search; configure a vector backend")
}

func (p *Postgres) TextSearch(ctx context.Context, q TextQuery) ([]ScoredChunkID, error) {
	const query = `
SELECT c.chunk_id, ts_rank_cd(to_tsvector('english', c.content), plainto_tsquery('english', $1)) AS rank
FROM chunks c
JOIN documents d ON d.document_id = c.document_id
WHERE to_tsvector('english', c.content) @@ plainto_tsquery('english', $1)
  AND ($2 = '' OR d.tenant = $2)
  AND ($3 = '' OR d.source_group = $3)
ORDER BY rank DESC
LIMIT $4`

	topK := q.TopK
	if topK <= 0 {
		topK = 20
	}
	rows, err := p.pool.Query(ctx, query, q.Text, q.Filter.Tenant, q.Filter.SourceGroup, topK)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "text search", err)
	}
	defer rows.Close()

	var out []ScoredChunkID
	for rows.Next() {
		var sc ScoredChunkID
		if err := rows.Scan(&sc.ChunkID, &sc.Score); err != nil {
			return nil, errs.Wrap(errs.Internal, "scan text search row", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (p *Postgres) HydrateChunks(ctx context.Context, ids []string, filter model.Filter) ([]model.HydratedChunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `
SELECT c.chunk_id, c.document_id, c.chunk_index, c.content, c.token_count, c.content_hash, c.context, c.chunker_method, c.metadata,
       d.title, d.source_locator
FROM chunks c
JOIN documents d ON d.document_id = c.document_id
WHERE c.chunk_id = ANY($1)
  AND ($2 = '' OR d.tenant = $2)
  AND ($3 = '' OR d.source_group = $3)`

	rows, err := p.pool.Query(ctx, query, ids, filter.Tenant, filter.SourceGroup)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "hydrate chunks", err)
	}
	defer rows.Close()

	var out []model.HydratedChunk
	for rows.Next() {
		var hc model.HydratedChunk
		var context_, metadata []byte
		if err := rows.Scan(&hc.Chunk.ChunkID, &hc.Chunk.DocumentID, &hc.Chunk.ChunkIndex, &hc.Chunk.Content,
			&hc.Chunk.TokenCount, &hc.Chunk.ContentHash, &context_, &hc.Chunk.ChunkerMethod, &metadata,
			&hc.DocumentTitle, &hc.SourceLocator); err != nil {
			return nil, errs.Wrap(errs.Internal, "scan hydrated chunk", err)
		}
		if len(context_) > 0 {
			_ = json.Unmarshal(context_, &hc.Chunk.Context)
		}
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &hc.Chunk.Metadata)
		}
		out = append(out, hc)
	}
	return out, rows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.pool.Ping(cctx); err != nil {
		return errs.Wrap(errs.DependencyUnavailable, "ping postgres", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
