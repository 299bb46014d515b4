package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// PlaceholderDimension matches the dimensionality of the default local
// retrieval model, so a later swap to a real backend keeps stored shapes.
const PlaceholderDimension = 768

// Placeholder derives unit vectors from a hash of the input text. It is
// deterministic and order-preserving but carries no semantic signal, which
// makes it suitable for functional testing and offline operation, not for
// ranking-accurate retrieval. Identical texts always map to identical
// vectors, so exact-duplicate evidence still retrieves at distance zero.
type Placeholder struct {
	dimension int
}

func NewPlaceholder(dimension int) *Placeholder {
	if dimension <= 0 {
		dimension = PlaceholderDimension
	}
	return &Placeholder{dimension: dimension}
}

func (p *Placeholder) Dimension() int { return p.dimension }

func (p *Placeholder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = p.embedOne(text)
	}
	return vectors, nil
}

func (p *Placeholder) embedOne(text string) []float64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	state := h.Sum64()
	if state == 0 {
		state = 1
	}

	vec := make([]float64, p.dimension)
	var norm float64
	for i := range vec {
		state = xorshift(state)
		// Map to [-1, 1).
		vec[i] = float64(int64(state)) / float64(math.MaxInt64)
		norm += vec[i] * vec[i]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

func xorshift(x uint64) uint64 {
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	return x
}
