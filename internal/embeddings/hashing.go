package embeddings

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// DefaultHashingDimensions matches the output size of the multilingual
// MiniLM sentence models, so configs can switch between them freely.
const DefaultHashingDimensions = 384

// HashingEmbedder is an in-process embedder based on feature hashing of
// words and character trigrams. It needs no model download, works for any
// script, and is exactly deterministic.
type HashingEmbedder struct {
	dims int
}

// NewHashingEmbedder creates a hashing embedder with the given vector size.
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = DefaultHashingDimensions
	}
	return &HashingEmbedder{dims: dims}
}

func (e *HashingEmbedder) Name() string { return "local/hashing-ngram" }

func (e *HashingEmbedder) Dimensions() int { return e.dims }

func (e *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *HashingEmbedder) vector(text string) []float32 {
	acc := make([]float64, e.dims)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		e.add(acc, "w:"+w, 1.0)
		padded := []rune(" " + w + " ")
		for j := 0; j+3 <= len(padded); j++ {
			e.add(acc, "t:"+string(padded[j:j+3]), 0.5)
		}
	}
	if len(words) == 0 {
		for _, r := range strings.TrimSpace(text) {
			e.add(acc, "r:"+string(r), 1.0)
		}
	}

	var norm float64
	for _, v := range acc {
		norm += v * v
	}
	vec := make([]float32, e.dims)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	norm = math.Sqrt(norm)
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec
}

func (e *HashingEmbedder) add(acc []float64, feature string, weight float64) {
	h := fnv.New32a()
	h.Write([]byte(feature))
	sum := h.Sum32()
	if sum&(1<<31) != 0 {
		weight = -weight
	}
	acc[int(sum%uint32(e.dims))] += weight
}
