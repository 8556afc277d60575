// Command retrieverd serves the Wire Surface HTTP API: ingest submission,
// job inspection, readings, and hybrid query.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"ragcore/internal/chunk"
	"ragcore/internal/config"
	"ragcore/internal/convert"
	"ragcore/internal/embedder"
	"ragcore/internal/httpapi"
	"ragcore/internal/ingest"
	"ragcore/internal/objectstore"
	"ragcore/internal/obs"
	"ragcore/internal/queue"
	"ragcore/internal/readings"
	"ragcore/internal/retrieve"
	"ragcore/internal/storage"
	"ragcore/internal/validate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	obs.InitLogger(cfg.Obs.LogPath, cfg.Obs.LogLevel, cfg.Obs.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdown, err := obs.InitOTel(ctx, cfg.Obs)
	if err != nil {
		log.Warn().Err(err).Msg("otel init failed, continuing without observability")
	}
	if shutdown != nil {
		defer func() { _ = shutdown(context.Background()) }()
	}

	store, err := storage.New(ctx, cfg.Store, cfg.Vector, cfg.Embedder.Dimension)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build storage adapter")
	}
	defer store.Close()

	emb, err := embedder.New(cfg.Embedder)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build embedder client")
	}

	var objStore objectstore.ObjectStore
	if cfg.ObjectStore.Bucket != "" {
		s3, err := objectstore.NewS3Store(ctx, cfg.ObjectStore)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build object store")
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

	producer := queue.NewProducer(cfg.Queue.KafkaBrokers, cfg.Queue.CommandsTopic)
	side := sideStoreFromConfig(cfg.Queue.RedisURL)
	q := queue.NewQueue(producer, side, cfg.Queue.DepthCeiling, nil)

	readingsSvc := readings.New(pipeline, readings.NewMemoryStore())
	engine := retrieve.New(store, emb, cfg.Retrieval.RRFConstant, cfg.Retrieval.MaxMatchCount)

	validator := validate.Build(validate.Strict, []validate.Capability{
		validate.DocumentStoreConnect,
		validate.EmbedderReachable,
	}, validate.Deps{Store: store, Embedder: emb})

	server := httpapi.NewServer(q, engine, readingsSvc, validator, objStore)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("starting retrieverd HTTP server")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("retrieverd HTTP server error")
	}
	log.Info().Msg("retrieverd stopped")
}

func sideStoreFromConfig(redisURL string) queue.SideStore {
	if redisURL == "" {
		return queue.NewMemorySideStore()
	}
	side, err := queue.NewRedisSideStore(redisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis side store")
	}
	return side
}
