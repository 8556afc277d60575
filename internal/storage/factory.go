package storage

import (
	"context"

	"ragcore/internal/config"
	"ragcore/internal/errs"
)

// New dispatches on cfg.Store.Backend / cfg.Vector.Backend to build the
// configured Adapter. "memory" for both backends yields a single self
// contained Memory adapter; any other combination pairs a DocStore with a
// VectorStore through Composite.
func New(ctx context.Context, storeCfg config.StoreConfig, vectorCfg config.VectorConfig, embedDim int) (Adapter, error) {
	if storeCfg.Backend == "memory" && vectorCfg.Backend == "memory" {
		return NewMemory(), nil
	}

	var docs DocStore
	switch storeCfg.Backend {
	case "postgres":
		pg, err := NewPostgres(ctx, storeCfg.URI)
		if err != nil {
			return nil, err
		}
		docs = pg
	case "memory":
		docs = NewMemory()
	default:
		return nil, errs.New(errs.ConfigInvalid, "unknown document store backend: "+storeCfg.Backend)
	}

	var vector VectorStore
	switch vectorCfg.Backend {
	case "qdrant":
		qd, err := NewQdrant(ctx, vectorCfg.URI, vectorCfg.Collection, embedDim, vectorCfg.Metric)
		if err != nil {
			return nil, err
		}
		vector = qd
	case "memory":
		vector = NewMemoryVector()
	default:
		return nil, errs.New(errs.ConfigInvalid, "unknown vector store backend: "+vectorCfg.Backend)
	}

	return NewComposite(docs, vector), nil
}
