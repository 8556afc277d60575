package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ragcore/internal/chunk"
	"ragcore/internal/convert"
	"ragcore/internal/embedder"
	"ragcore/internal/errs"
	"ragcore/internal/model"
	"ragcore/internal/obs"
	"ragcore/internal/storage"
)

// Pipeline wires a Fetchers set, a convert.Registry, a chunker config, an
// embedder.Client, and a storage.Adapter into the Ingest algorithm.
type Pipeline struct {
	Fetchers  Fetchers
	Converter *convert.Registry
	Chunker   chunk.Config
	Embedder  embedder.Client
	Store     storage.Adapter

	// ChunkConcurrency bounds how many chunk upserts run in parallel once
	// the owning document has been upserted. Defaults to 4.
	ChunkConcurrency int
}

// Ingest runs Fetch → Convert → Fingerprint → Chunk → Embed → Upsert for one
// Source Descriptor, per §4.5.
func (p *Pipeline) Ingest(ctx context.Context, d model.SourceDescriptor) (model.IngestReport, error) {
	report := model.IngestReport{}

	fetched, err := p.Fetchers.Fetch(ctx, d)
	if err != nil {
		report.Warnings = append(report.Warnings, "fetch failed: "+err.Error())
		return report, nil
	}

	doc, err := p.Converter.Convert(ctx, fetched.Format, d.Locator, fetched.Data)
	if err != nil {
		report.Warnings = append(report.Warnings, "convert failed: "+err.Error())
		return report, nil
	}

	contentHash := fingerprint(doc.Text)

	if existing, found, err := p.Store.FindDocumentByHash(ctx, d.Tenant, d.SourceGroup, contentHash); err == nil && found {
		// Identical content already ingested in this partition: short-circuit
		// before chunking/embedding, per the fingerprint step.
		report.Document = &existing
		return report, nil
	}

	fragments := chunk.Split(doc, p.Chunker)
	if len(fragments) == 0 {
		report.Warnings = append(report.Warnings, "conversion produced no chunkable content")
		return report, nil
	}

	texts := make([]string, len(fragments))
	for i, f := range fragments {
		texts[i] = f.Text
	}
	embeddings, err := p.Embedder.Embed(ctx, texts)
	if err != nil {
		return report, errs.Wrap(errs.EmbedderFailed, "embed batch failed for source: "+d.Locator, err)
	}
	if len(embeddings) != len(fragments) {
		return report, errs.New(errs.EmbedderFailed, "embedder returned mismatched vector count")
	}

	candidateID := uuid.NewString()
	record := model.Document{
		DocumentID:    candidateID,
		Title:         doc.Title,
		SourceLocator: d.Locator,
		SourceKind:    d.Kind,
		Content:       doc.Text,
		Frontmatter:   doc.Frontmatter,
		IngestedAt:    timeNow(),
		ContentHash:   contentHash,
		Tenant:        d.Tenant,
		SourceGroup:   d.SourceGroup,
	}

	upserted, err := p.Store.UpsertDocument(ctx, record)
	if err != nil {
		return report, errs.Wrap(errs.Internal, "upsert document failed: "+d.Locator, err)
	}
	if upserted.DocumentID != candidateID {
		// Lost a race against a concurrent ingest of the same content: the
		// conflicting upsert already won, so report zero new chunks rather
		// than attaching this source's already-embedded chunks to it.
		report.Document = &upserted
		return report, nil
	}
	report.DocumentsIngested = 1
	report.Document = &upserted

	count, warnings := p.upsertChunks(ctx, upserted.DocumentID, fragments, embeddings)
	report.ChunksIngested = count
	report.Warnings = append(report.Warnings, warnings...)
	return report, nil
}

func (p *Pipeline) upsertChunks(ctx context.Context, documentID string, fragments []chunk.Fragment, embeddings [][]float32) (int, []string) {
	concurrency := p.ChunkConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	type result struct {
		ok  bool
		err error
	}

	sem := make(chan struct{}, concurrency)
	results := make(chan result, len(fragments))

	for i, frag := range fragments {
		i, frag := i, frag
		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			c := model.Chunk{
				ChunkID:       uuid.NewString(),
				DocumentID:    documentID,
				ChunkIndex:    i,
				Content:       frag.Text,
				TokenCount:    chunk.WhitespaceTokenizer{}.Count(frag.Text),
				Embedding:     embeddings[i],
				ContentHash:   fingerprint(frag.Text),
				Context:       frag.Context,
				ChunkerMethod: model.ChunkerMethod(frag.Method),
				Metadata:      frag.Metadata,
			}
			_, err := p.Store.UpsertChunk(ctx, c)
			results <- result{ok: err == nil, err: err}
		}()
	}

	count := 0
	var warnings []string
	for range fragments {
		r := <-results
		if r.ok {
			count++
		} else {
			warnings = append(warnings, fmt.Sprintf("chunk upsert failed: %v", r.err))
			obs.FromContext(ctx).Warn().Err(r.err).Msg("chunk upsert failed")
		}
	}
	return count, warnings
}

func timeNow() time.Time { return time.Now() }
