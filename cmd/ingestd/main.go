// Command ingestd runs one or more Worker goroutines that claim jobs from
// the Job Queue and drive the Ingestion Pipeline to completion.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog/log"

	"ragcore/internal/chunk"
	"ragcore/internal/config"
	"ragcore/internal/convert"
	"ragcore/internal/embedder"
	"ragcore/internal/ingest"
	"ragcore/internal/objectstore"
	"ragcore/internal/obs"
	"ragcore/internal/queue"
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

	validator := validate.Build(validate.Strict, []validate.Capability{
		validate.DocumentStoreConnect,
		validate.DocumentStoreSchema,
		validate.EmbedderReachable,
	}, validate.Deps{Store: store, Embedder: emb})

	side := sideStoreFromConfig(cfg.Queue.RedisURL)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Queue.WorkerCount; i++ {
		producer := queue.NewProducer(cfg.Queue.KafkaBrokers, cfg.Queue.ResponsesTopic)
		consumer := queue.NewConsumer(cfg.Queue.KafkaBrokers, cfg.Queue.KafkaConsumerGroup, cfg.Queue.CommandsTopic)

		worker := queue.NewWorker(consumer, producer, side, pipeline, validator)
		worker.Visibility = cfg.Queue.VisibilityTimeout
		worker.JobTimeout = cfg.Queue.PerJobTimeout

		wg.Add(1)
		go func(workerNum int) {
			defer wg.Done()
			defer consumer.Close()
			log.Info().Int("worker", workerNum).Msg("starting ingest worker")
			if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Int("worker", workerNum).Msg("worker exited")
			}
		}(i)
	}

	wg.Wait()
	log.Info().Msg("ingestd stopped")
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
