package hashing

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// DefaultDimension is the vector size used when none is configured.
const DefaultDimension = 1024

// Embedder maps text to a fixed-size vector by hashing word and character
// n-gram features into signed buckets. Output vectors are L2-normalized.
//
// Character n-grams are taken inside each word, so inflected forms such as
// "중곡동에" still share most features with "중곡동".
type Embedder struct {
	dimension    int
	minGram      int
	maxGram      int
	tokenPattern *regexp.Regexp
}

// NewEmbedder creates a hashing embedder with the given dimension.
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{
		dimension:    dimension,
		minGram:      2,
		maxGram:      3,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+`),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "hashing" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes the hashed feature vector for text. Text without any
// letters or digits yields the zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	acc := make([]float64, e.dimension)
	for _, tok := range e.tokenize(text) {
		e.add(acc, "w:"+tok)
		runes := []rune(tok)
		for n := e.minGram; n <= e.maxGram; n++ {
			prefix := strconv.Itoa(n) + ":"
			for i := 0; i+n <= len(runes); i++ {
				e.add(acc, prefix+string(runes[i:i+n]))
			}
		}
	}
	// L2 normalize
	norm := 0.0
	for _, v := range acc {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	vec := make([]float32, e.dimension)
	if norm == 0 {
		return vec, nil
	}
	for i, v := range acc {
		vec[i] = float32(v / norm)
	}
	return vec, nil
}

func (e *Embedder) add(acc []float64, feature string) {
	h := xxhash.Sum64String(feature)
	idx := h % uint64(len(acc))
	if h>>63 == 1 {
		acc[idx]--
		return
	}
	acc[idx]++
}

func (e *Embedder) tokenize(text string) []string {
	return e.tokenPattern.FindAllString(strings.ToLower(text), -1)
}
