package memory

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder produces vector embeddings for text. Backends that rank by
// similarity (SQLite, chromem) embed memory content on write and subjects or
// messages on read.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DefaultHashDimensions is the vector size of HashEmbedder when none is given.
const DefaultHashDimensions = 256

// HashEmbedder is an offline, deterministic embedder. It hashes the keywords
// of a text into a fixed number of buckets and L2-normalises the counts, so
// cosine similarity measures keyword overlap.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder creates a HashEmbedder. dimensions <= 0 selects
// DefaultHashDimensions.
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = DefaultHashDimensions
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Dimensions returns the vector size.
func (e *HashEmbedder) Dimensions() int { return e.dimensions }

// Embed never fails. Text without keywords is hashed as a single token so
// the vector is never all zeros.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	tokens := Keywords(text)
	if len(tokens) == 0 {
		tokens = []string{strings.ToLower(strings.TrimSpace(text))}
	}

	vec := make([]float32, e.dimensions)
	for _, tok := range tokens {
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dimensions)]++
	}
	return normalize(vec), nil
}

// normalize scales vec to unit length in place.
func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}
	return vec
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 if the lengths differ, either vector is empty or has zero
// magnitude.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ Embedder = (*HashEmbedder)(nil)
