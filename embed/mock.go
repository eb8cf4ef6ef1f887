package embed

import (
	"context"
	"hash/fnv"
	"math"
)

const mockDimensions = 384

// MockEmbedder produces deterministic unit vectors from a text hash. It has
// no semantic power but gives the vector path something stable to index and
// query, which is all tests and offline setups need.
type MockEmbedder struct {
	dimensions int
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{dimensions: mockDimensions}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, m.dimensions)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed)) / float32(math.MaxInt64)
	}
	return normalize(vec), nil
}

func (m *MockEmbedder) Dimensions() int { return m.dimensions }

func normalize(vec []float32) []float32 {
	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	norm = float32(math.Sqrt(float64(norm)))
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out
}
