// Package local provides a deterministic, offline embedding provider for
// development and tests. Vectors are derived from a text hash and
// normalized, so identical text always embeds identically and similarity
// scores are stable across runs. The vectors carry no semantic meaning.
package local

import (
	"context"
	"hash/fnv"
	"math"
)

// Provider generates hash-based pseudo-embeddings
type Provider struct {
	dimensions int
}

// NewProvider creates a provider emitting vectors of the given dimension
func NewProvider(dimensions int) *Provider {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &Provider{dimensions: dimensions}
}

// Embed creates a deterministic unit vector from the text
func (p *Provider) Embed(_ context.Context, text string) ([]float64, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vector := make([]float64, p.dimensions)
	for i := range vector {
		// Linear congruential generator seeded by the text hash
		seed = seed*6364136223846793005 + 1442695040888963407
		vector[i] = float64(int64(seed)) / float64(math.MaxInt64)
	}

	return normalize(vector), nil
}

// Dimensions returns the embedding size
func (p *Provider) Dimensions() int {
	return p.dimensions
}

// normalize scales the vector to unit length
func normalize(vector []float64) []float64 {
	var norm float64
	for _, v := range vector {
		norm += v * v
	}
	if norm == 0 {
		return vector
	}
	norm = math.Sqrt(norm)
	for i := range vector {
		vector[i] /= norm
	}
	return vector
}
