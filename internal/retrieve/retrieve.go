// Package retrieve implements the Retrieval Engine: a hybrid semantic +
// lexical query path fused by Reciprocal Rank Fusion, with graceful
// degradation to a single branch if the other fails.
package retrieve

import (
	"context"
	"sort"
	"sync"

	"ragcore/internal/embedder"
	"ragcore/internal/errs"
	"ragcore/internal/model"
	"ragcore/internal/storage"
)

// DefaultRRFConstant is the fusion constant C in score_rrf = Σ 1/(C+rank).
const DefaultRRFConstant = 60

// DefaultMaxK is the default ceiling on k when a caller does not configure one.
const DefaultMaxK = 50

// Engine answers Query against a Storage Adapter's search branches, fusing
// results with the Embedder Client supplying query vectors.
type Engine struct {
	Store       storage.Adapter
	Embedder    embedder.Client
	RRFConstant int
	MaxK        int
}

// New constructs an Engine with spec defaults applied for any zero field.
func New(store storage.Adapter, emb embedder.Client, rrfConstant, maxK int) *Engine {
	if rrfConstant <= 0 {
		rrfConstant = DefaultRRFConstant
	}
	if maxK <= 0 {
		maxK = DefaultMaxK
	}
	return &Engine{Store: store, Embedder: emb, RRFConstant: rrfConstant, MaxK: maxK}
}

// Query runs text against mode's branch(es), fuses if hybrid, and hydrates
// the top k results. k is clamped to e.MaxK. warnings reports graceful
// degradation (e.g. "lexical search failed, returned semantic-only results").
func (e *Engine) Query(ctx context.Context, text string, k int, filter model.Filter, mode model.RetrieveMode) ([]model.HydratedChunk, []string, error) {
	if k <= 0 {
		k = 10
	}
	if k > e.MaxK {
		k = e.MaxK
	}

	switch mode {
	case model.ModeSemantic:
		results, err := e.semanticSearch(ctx, text, k, filter)
		if err != nil {
			return nil, nil, err
		}
		hydrated, err := e.hydrate(ctx, rankOnly(results), filter)
		return hydrated, nil, err
	case model.ModeLexical:
		results, err := e.lexicalSearch(ctx, text, k, filter)
		if err != nil {
			return nil, nil, err
		}
		hydrated, err := e.hydrate(ctx, rankOnly(results), filter)
		return hydrated, nil, err
	default:
		return e.hybridQuery(ctx, text, k, filter)
	}
}

func (e *Engine) hybridQuery(ctx context.Context, text string, k int, filter model.Filter) ([]model.HydratedChunk, []string, error) {
	kCandidate := k * 4
	if kCandidate < 20 {
		kCandidate = 20
	}

	var (
		wg                     sync.WaitGroup
		semanticIDs, lexicalIDs []storage.ScoredChunkID
		semanticErr, lexicalErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		semanticIDs, semanticErr = e.semanticSearch(ctx, text, kCandidate, filter)
	}()
	go func() {
		defer wg.Done()
		lexicalIDs, lexicalErr = e.lexicalSearch(ctx, text, kCandidate, filter)
	}()
	wg.Wait()

	var warnings []string
	switch {
	case semanticErr != nil && lexicalErr != nil:
		return nil, nil, errs.New(errs.DependencyUnavailable,
			"both semantic and lexical search failed: "+semanticErr.Error()+"; "+lexicalErr.Error())
	case semanticErr != nil:
		warnings = append(warnings, "semantic search failed, degraded to lexical-only: "+semanticErr.Error())
		top := takeTopScored(rankOnly(lexicalIDs), k)
		hydrated, err := e.hydrate(ctx, top, filter)
		return hydrated, warnings, err
	case lexicalErr != nil:
		warnings = append(warnings, "lexical search failed, degraded to semantic-only: "+lexicalErr.Error())
		top := takeTopScored(rankOnly(semanticIDs), k)
		hydrated, err := e.hydrate(ctx, top, filter)
		return hydrated, warnings, err
	}

	fused := fuse(semanticIDs, lexicalIDs, e.RRFConstant)
	top := takeTopScored(fused, k)
	hydrated, err := e.hydrate(ctx, top, filter)
	return hydrated, warnings, err
}

func (e *Engine) semanticSearch(ctx context.Context, text string, k int, filter model.Filter) ([]storage.ScoredChunkID, error) {
	embeddings, err := e.Embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, errs.Wrap(errs.EmbedderFailed, "embed query text", err)
	}
	return e.Store.VectorSearch(ctx, storage.VectorQuery{Embedding: embeddings[0], TopK: k, Filter: filter})
}

func (e *Engine) lexicalSearch(ctx context.Context, text string, k int, filter model.Filter) ([]storage.ScoredChunkID, error) {
	return e.Store.TextSearch(ctx, storage.TextQuery{Text: text, TopK: k, Filter: filter})
}

// hydrate fetches document metadata for each scored chunk id, preserving
// fused order and attaching each chunk's final score.
func (e *Engine) hydrate(ctx context.Context, items []scored, filter model.Filter) ([]model.HydratedChunk, error) {
	if len(items) == 0 {
		return nil, nil
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.chunkID
	}
	hydrated, err := e.Store.HydrateChunks(ctx, ids, filter)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "hydrate chunks", err)
	}
	byID := make(map[string]model.HydratedChunk, len(hydrated))
	for _, h := range hydrated {
		byID[h.Chunk.ChunkID] = h
	}
	ordered := make([]model.HydratedChunk, 0, len(items))
	for _, it := range items {
		h, ok := byID[it.chunkID]
		if !ok {
			continue
		}
		h.Score = it.score
		ordered = append(ordered, h)
	}
	return ordered, nil
}

// scored pairs a chunk id with its fused (or passthrough) score.
type scored struct {
	chunkID string
	score   float64
}

// fuse computes unweighted Reciprocal Rank Fusion across two ranked id
// lists, returning every id appearing in either, sorted score descending
// with chunk_id ascending as the tie-break.
func fuse(a, b []storage.ScoredChunkID, c int) []scored {
	scores := make(map[string]float64)
	for rank, item := range a {
		scores[item.ChunkID] += 1.0 / float64(c+rank+1)
	}
	for rank, item := range b {
		scores[item.ChunkID] += 1.0 / float64(c+rank+1)
	}
	out := make([]scored, 0, len(scores))
	for id, s := range scores {
		out = append(out, scored{chunkID: id, score: s})
	}
	sortScored(out)
	return out
}

// rankOnly builds a scored list from a single branch's results, passing
// each item's own branch score (cosine similarity or text rank) through
// unchanged (no fusion).
func rankOnly(items []storage.ScoredChunkID) []scored {
	out := make([]scored, len(items))
	for i, item := range items {
		out[i] = scored{chunkID: item.ChunkID, score: item.Score}
	}
	return out
}

func sortScored(items []scored) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].score != items[j].score {
			return items[i].score > items[j].score
		}
		return items[i].chunkID < items[j].chunkID
	})
}

func takeTopScored(items []scored, k int) []scored {
	if k > len(items) {
		k = len(items)
	}
	return items[:k]
}
