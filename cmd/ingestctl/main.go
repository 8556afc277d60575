// Command ingestctl runs the Ingestion Pipeline directly against a single
// source, bypassing the Job Queue. Useful for local backfills and smoke
// testing a storage/embedder configuration.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"ragcore/internal/chunk"
	"ragcore/internal/config"
	"ragcore/internal/convert"
	"ragcore/internal/embedder"
	"ragcore/internal/ingest"
	"ragcore/internal/model"
	"ragcore/internal/objectstore"
	"ragcore/internal/storage"
)

func main() {
	log.SetFlags(0)
	var (
		kind        = flag.String("kind", string(model.SourceLocalFile), "source kind: local_file|web_url|uploaded_blob|drive_file|audio_transcript")
		locator     = flag.String("locator", "", "source locator (path, URL, or object key)")
		tenant      = flag.String("tenant", "", "tenant for corpus partitioning")
		sourceGroup = flag.String("source-group", "default", "source group for corpus partitioning")
	)
	flag.Parse()

	if *locator == "" {
		log.Fatal("-locator is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := storage.New(ctx, cfg.Store, cfg.Vector, cfg.Embedder.Dimension)
	if err != nil {
		log.Fatalf("build storage adapter: %v", err)
	}
	defer store.Close()

	emb, err := embedder.New(cfg.Embedder)
	if err != nil {
		log.Fatalf("build embedder client: %v", err)
	}

	var objStore objectstore.ObjectStore
	if cfg.ObjectStore.Bucket != "" {
		s3, err := objectstore.NewS3Store(ctx, cfg.ObjectStore)
		if err != nil {
			log.Fatalf("build object store: %v", err)
		}
		objStore = s3
	}

	pipeline := &ingest.Pipeline{
		Fetchers:  ingest.NewDefaultFetchers(objStore, nil),
		Converter: convert.NewRegistry(),
		Chunker:   chunk.Config{MaxTokens: cfg.MaxTokensPerChunk},
		Embedder:  emb,
		Store:     store,
	}

	descriptor := model.SourceDescriptor{
		Kind:        model.SourceKind(*kind),
		Locator:     *locator,
		Tenant:      *tenant,
		SourceGroup: *sourceGroup,
	}

	report, err := pipeline.Ingest(ctx, descriptor)
	if err != nil {
		log.Fatalf("ingest failed: %v", err)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	os.Stdout.Write(out)
	os.Stdout.WriteString("\n")
}
