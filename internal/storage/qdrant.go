package storage

import (
	"context"

	"github.com/qdrant/go-client/qdrant"

	"ragcore/internal/errs"
	"ragcore/internal/model"
)

// Qdrant serves vector search only; document/chunk storage and lexical
// search are delegated to a paired Adapter (typically Postgres or Memory).
// Composite.UpsertChunk writes each chunk to both the document store and this
// index.
type Qdrant struct {
	client     *qdrant.Client
	collection string
}

// NewQdrant dials addr and ensures the target collection exists with the
// given vector dimension and distance metric.
func NewQdrant(ctx context.Context, addr, collection string, dim int, metric string) (*Qdrant, error) {
	client, err := qdrant.NewClient(&qdrant.Config{Host: addr})
	if err != nil {
		return nil, errs.Wrap(errs.DependencyUnavailable, "connect qdrant", err)
	}

	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, errs.Wrap(errs.DependencyUnavailable, "check qdrant collection", err)
	}
	if !exists {
		if err := client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dim),
				Distance: qdrantDistance(metric),
			}),
		}); err != nil {
			return nil, errs.Wrap(errs.IndexMissing, "create qdrant collection", err)
		}
	}

	return &Qdrant{client: client, collection: collection}, nil
}

func qdrantDistance(metric string) qdrant.Distance {
	switch metric {
	case "euclidean":
		return qdrant.Distance_Euclid
	case "dot":
		return qdrant.Distance_Dot
	case "manhattan":
		return qdrant.Distance_Manhattan
	default:
		return qdrant.Distance_Cosine
	}
}

// Upsert indexes a chunk's embedding, keyed by chunk ID, tagged with the
// partition for filtered search.
func (q *Qdrant) Upsert(ctx context.Context, chunk model.Chunk, tenant, sourceGroup string) error {
	if len(chunk.Embedding) == 0 {
		return errs.New(errs.EmbedderFailed, "chunk has no embedding to index: "+chunk.ChunkID)
	}
	point := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(chunk.ChunkID),
		Vectors: qdrant.NewVectors(chunk.Embedding...),
		Payload: qdrant.NewValueMap(map[string]any{
			"document_id":  chunk.DocumentID,
			"tenant":       tenant,
			"source_group": sourceGroup,
		}),
	}
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return errs.Wrap(errs.Internal, "qdrant upsert", err)
	}
	return nil
}

func (q *Qdrant) VectorSearch(ctx context.Context, query VectorQuery) ([]ScoredChunkID, error) {
	topK := uint64(query.TopK)
	if topK == 0 {
		topK = 20
	}

	var filter *qdrant.Filter
	var conditions []*qdrant.Condition
	if query.Filter.Tenant != "" {
		conditions = append(conditions, qdrant.NewMatch("tenant", query.Filter.Tenant))
	}
	if query.Filter.SourceGroup != "" {
		conditions = append(conditions, qdrant.NewMatch("source_group", query.Filter.SourceGroup))
	}
	if len(conditions) > 0 {
		filter = &qdrant.Filter{Must: conditions}
	}

	result, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(query.Embedding...),
		Filter:         filter,
		Limit:          &topK,
	})
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "qdrant query", err)
	}

	out := make([]ScoredChunkID, 0, len(result))
	for _, r := range result {
		out = append(out, ScoredChunkID{ChunkID: r.Id.GetUuid(), Score: float64(r.Score)})
	}
	return out, nil
}

func (q *Qdrant) Ping(ctx context.Context) error {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return errs.Wrap(errs.DependencyUnavailable, "ping qdrant", err)
	}
	return nil
}

func (q *Qdrant) Close() error {
	return q.client.Close()
}
