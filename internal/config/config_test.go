package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "memory", cfg.Vector.Backend)
	assert.Equal(t, "deterministic", cfg.Embedder.Provider)
	assert.Equal(t, 384, cfg.Embedder.Dimension)
	assert.Equal(t, 60, cfg.Retrieval.RRFConstant)
	assert.Equal(t, 512, cfg.MaxTokensPerChunk)
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	cfg := Config{
		Store:     StoreConfig{Backend: "mongo"},
		Vector:    VectorConfig{Backend: "memory"},
		Embedder:  EmbedderConfig{Provider: "deterministic", Dimension: 8},
		Retrieval: RetrievalConfig{DefaultMatchCount: 5, MaxMatchCount: 50},
		Queue:     QueueConfig{WorkerCount: 1},
		MaxTokensPerChunk: 128,
	}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateRequiresPostgresURI(t *testing.T) {
	cfg := Config{
		Store:     StoreConfig{Backend: "postgres"},
		Vector:    VectorConfig{Backend: "memory"},
		Embedder:  EmbedderConfig{Provider: "deterministic", Dimension: 8},
		Retrieval: RetrievalConfig{DefaultMatchCount: 5, MaxMatchCount: 50},
		Queue:     QueueConfig{WorkerCount: 1},
		MaxTokensPerChunk: 128,
	}
	err := cfg.Validate()
	require.Error(t, err)
}

func TestValidateRejectsDefaultExceedingMax(t *testing.T) {
	cfg := Config{
		Store:     StoreConfig{Backend: "memory"},
		Vector:    VectorConfig{Backend: "memory"},
		Embedder:  EmbedderConfig{Provider: "deterministic", Dimension: 8},
		Retrieval: RetrievalConfig{DefaultMatchCount: 100, MaxMatchCount: 50},
		Queue:     QueueConfig{WorkerCount: 1},
		MaxTokensPerChunk: 128,
	}
	err := cfg.Validate()
	require.Error(t, err)
}
