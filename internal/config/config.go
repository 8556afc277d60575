// Package config loads the process-wide Config from environment variables
// (with an optional local .env for development) and validates it once at
// startup. Components receive Config by explicit injection — nothing reads
// ambient environment state at call time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"ragcore/internal/errs"
)

// StoreConfig configures the document/chunk store.
type StoreConfig struct {
	Backend             string // "memory" | "postgres"
	URI                 string
	Database            string
	DocumentsCollection string
	ChunksCollection    string
	VectorIndexName     string
	TextIndexName       string
}

// VectorConfig configures the vector-search backend.
type VectorConfig struct {
	Backend    string // "memory" | "qdrant"
	URI        string
	Collection string
	Metric     string // cosine | euclidean | dot | manhattan
}

// EmbedderConfig configures the Embedder Client.
type EmbedderConfig struct {
	Provider  string // "deterministic" | "http"
	BaseURL   string
	Path      string
	APIKey    string
	APIHeader string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// QueueConfig configures the Job Queue & Worker Pool transport.
type QueueConfig struct {
	KafkaBrokers       []string
	KafkaConsumerGroup string
	CommandsTopic      string
	ResponsesTopic     string
	RedisURL           string
	DepthCeiling       int
	WorkerCount        int
	VisibilityTimeout  time.Duration
	PerJobTimeout      time.Duration
}

// ObjectStoreConfig configures the uploaded_blob object-storage backend.
type ObjectStoreConfig struct {
	Bucket       string
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// WebConfig configures JS-rendered web fetching and metasearch.
type WebConfig struct {
	BrowserEnabled bool
	MetasearchURL  string
}

// ObsConfig configures logging/tracing/metrics.
type ObsConfig struct {
	LogLevel       string
	LogFormat      string // "json" | "console"
	LogPath        string
	OTLPEndpoint   string
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// RetrievalConfig configures the hybrid retrieval engine.
type RetrievalConfig struct {
	RRFConstant       int
	DefaultMatchCount int
	MaxMatchCount     int
	PerQueryTimeout   time.Duration
}

// Config is the single process-wide configuration object.
type Config struct {
	Store             StoreConfig
	Vector            VectorConfig
	Embedder          EmbedderConfig
	Queue             QueueConfig
	ObjectStore       ObjectStoreConfig
	Web               WebConfig
	Obs               ObsConfig
	Retrieval         RetrievalConfig
	MaxTokensPerChunk int
	HTTPAddr          string
}

// Load reads Config from the environment, overlaying an optional .env file.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{
		Store: StoreConfig{
			Backend:             firstNonEmpty(os.Getenv("DOCUMENT_STORE_BACKEND"), "memory"),
			URI:                 os.Getenv("DOCUMENT_STORE_URI"),
			Database:            os.Getenv("DOCUMENT_STORE_DATABASE"),
			DocumentsCollection: firstNonEmpty(os.Getenv("DOCUMENTS_COLLECTION"), "documents"),
			ChunksCollection:    firstNonEmpty(os.Getenv("CHUNKS_COLLECTION"), "chunks"),
			VectorIndexName:     firstNonEmpty(os.Getenv("VECTOR_INDEX_NAME"), "chunks_embedding_idx"),
			TextIndexName:       firstNonEmpty(os.Getenv("TEXT_INDEX_NAME"), "chunks_content_idx"),
		},
		Vector: VectorConfig{
			Backend:    firstNonEmpty(os.Getenv("VECTOR_STORE_BACKEND"), "memory"),
			URI:        os.Getenv("VECTOR_STORE_URI"),
			Collection: firstNonEmpty(os.Getenv("VECTOR_COLLECTION"), "chunks"),
			Metric:     firstNonEmpty(os.Getenv("VECTOR_METRIC"), "cosine"),
		},
		Embedder: EmbedderConfig{
			Provider:  firstNonEmpty(os.Getenv("EMBEDDER_PROVIDER"), "deterministic"),
			BaseURL:   os.Getenv("EMBEDDER_BASE_URL"),
			Path:      firstNonEmpty(os.Getenv("EMBEDDER_PATH"), "/v1/embeddings"),
			APIKey:    os.Getenv("EMBEDDER_API_KEY"),
			APIHeader: firstNonEmpty(os.Getenv("EMBEDDER_API_HEADER"), "Authorization"),
			Model:     os.Getenv("EMBEDDER_MODEL"),
			Dimension: intFromEnv("EMBEDDER_DIMENSION", 384),
			Timeout:   durationFromEnv("EMBEDDER_TIMEOUT", 30*time.Second),
		},
		Queue: QueueConfig{
			KafkaBrokers:       parseCommaSeparated(os.Getenv("KAFKA_BROKERS")),
			KafkaConsumerGroup: firstNonEmpty(os.Getenv("KAFKA_CONSUMER_GROUP"), "ragcore-ingest"),
			CommandsTopic:      firstNonEmpty(os.Getenv("QUEUE_NAME"), "ingest-jobs"),
			ResponsesTopic:     firstNonEmpty(os.Getenv("QUEUE_RESPONSES_TOPIC"), "ingest-jobs.responses"),
			RedisURL:           os.Getenv("REDIS_URL"),
			DepthCeiling:       intFromEnv("QUEUE_DEPTH_CEILING", 10000),
			WorkerCount:        intFromEnv("WORKER_COUNT", 4),
			VisibilityTimeout:  durationFromEnv("WORKER_VISIBILITY_TIMEOUT_SECONDS", 15*time.Minute),
			PerJobTimeout:      durationFromEnv("PER_JOB_TIMEOUT_SECONDS", 1800*time.Second),
		},
		ObjectStore: ObjectStoreConfig{
			Bucket:       os.Getenv("OBJECT_STORE_BUCKET"),
			Endpoint:     os.Getenv("OBJECT_STORE_ENDPOINT"),
			Region:       firstNonEmpty(os.Getenv("OBJECT_STORE_REGION"), "us-east-1"),
			AccessKey:    os.Getenv("OBJECT_STORE_ACCESS_KEY"),
			SecretKey:    os.Getenv("OBJECT_STORE_SECRET_KEY"),
			UsePathStyle: boolFromEnv("OBJECT_STORE_USE_PATH_STYLE", false),
		},
		Web: WebConfig{
			BrowserEnabled: boolFromEnv("BROWSER_ENABLED", false),
			MetasearchURL:  os.Getenv("METASEARCH_URL"),
		},
		Obs: ObsConfig{
			LogLevel:       firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
			LogFormat:      firstNonEmpty(os.Getenv("LOG_FORMAT"), "json"),
			LogPath:        os.Getenv("LOG_PATH"),
			OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_ENDPOINT"),
			ServiceName:    firstNonEmpty(os.Getenv("SERVICE_NAME"), "ragcore"),
			ServiceVersion: firstNonEmpty(os.Getenv("SERVICE_VERSION"), "dev"),
			Environment:    firstNonEmpty(os.Getenv("ENVIRONMENT"), "development"),
		},
		Retrieval: RetrievalConfig{
			RRFConstant:       intFromEnv("RRF_CONSTANT", 60),
			DefaultMatchCount: intFromEnv("DEFAULT_MATCH_COUNT", 5),
			MaxMatchCount:     intFromEnv("MAX_MATCH_COUNT", 50),
			PerQueryTimeout:   durationFromEnv("PER_QUERY_TIMEOUT_SECONDS", 30*time.Second),
		},
		MaxTokensPerChunk: intFromEnv("MAX_TOKENS_PER_CHUNK", 512),
		HTTPAddr:          firstNonEmpty(os.Getenv("HTTP_ADDR"), ":8080"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate fails fast on structurally invalid settings (errs.ConfigInvalid).
func (c Config) Validate() error {
	if c.Store.Backend != "memory" && c.Store.Backend != "postgres" {
		return errs.New(errs.ConfigInvalid, fmt.Sprintf("document store backend %q is not one of memory|postgres", c.Store.Backend))
	}
	if c.Vector.Backend != "memory" && c.Vector.Backend != "qdrant" {
		return errs.New(errs.ConfigInvalid, fmt.Sprintf("vector store backend %q is not one of memory|qdrant", c.Vector.Backend))
	}
	if c.Store.Backend == "postgres" && strings.TrimSpace(c.Store.URI) == "" {
		return errs.New(errs.ConfigInvalid, "document_store_uri is required when DOCUMENT_STORE_BACKEND=postgres")
	}
	if c.Vector.Backend == "qdrant" && strings.TrimSpace(c.Vector.URI) == "" {
		return errs.New(errs.ConfigInvalid, "vector store uri is required when VECTOR_STORE_BACKEND=qdrant")
	}
	if c.Embedder.Provider != "deterministic" && c.Embedder.Provider != "http" {
		return errs.New(errs.ConfigInvalid, fmt.Sprintf("embedder provider %q is not one of deterministic|http", c.Embedder.Provider))
	}
	if c.Embedder.Provider == "http" && strings.TrimSpace(c.Embedder.BaseURL) == "" {
		return errs.New(errs.ConfigInvalid, "embedder_base_url is required when EMBEDDER_PROVIDER=http")
	}
	if c.Embedder.Dimension <= 0 {
		return errs.New(errs.ConfigInvalid, "embedder_dimension must be positive")
	}
	if c.Retrieval.MaxMatchCount <= 0 || c.Retrieval.DefaultMatchCount <= 0 {
		return errs.New(errs.ConfigInvalid, "match count settings must be positive")
	}
	if c.Retrieval.DefaultMatchCount > c.Retrieval.MaxMatchCount {
		return errs.New(errs.ConfigInvalid, "default_match_count cannot exceed max_match_count")
	}
	if c.MaxTokensPerChunk <= 0 {
		return errs.New(errs.ConfigInvalid, "max_tokens_per_chunk must be positive")
	}
	if c.Queue.WorkerCount <= 0 {
		return errs.New(errs.ConfigInvalid, "worker_count must be positive")
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func intFromEnv(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func durationFromEnv(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

func parseCommaSeparated(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
