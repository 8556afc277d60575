package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"strconv"
)

// Deterministic produces reproducible, content-derived embeddings without
// any network dependency: every distinct text maps to the same vector on
// every run, and similar texts do not cluster, making this suitable for
// tests and offline pipeline wiring but not for meaningful semantic search.
type Deterministic struct {
	dimension int
}

// NewDeterministic constructs a Deterministic embedder producing vectors of
// the given dimension.
func NewDeterministic(dimension int) *Deterministic {
	if dimension <= 0 {
		dimension = 384
	}
	return &Deterministic{dimension: dimension}
}

func (d *Deterministic) Dimension() int { return d.dimension }

func (d *Deterministic) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = d.vectorFor(text)
	}
	return out, nil
}

func (d *Deterministic) vectorFor(text string) []float32 {
	vec := make([]float32, d.dimension)
	block := sha256.Sum256([]byte(text))
	pos := 0
	for i := range vec {
		if pos+4 > len(block) {
			block = sha256.Sum256(append(block[:], []byte(strconv.Itoa(i))...))
			pos = 0
		}
		n := binary.BigEndian.Uint32(block[pos : pos+4])
		pos += 4
		vec[i] = (float32(n%20000) / 10000.0) - 1.0 // in [-1, 1)
	}
	return vec
}
