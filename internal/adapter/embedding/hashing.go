package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"bookrec/internal/adapter/analyzer"
)

const hashingPrefix = "hashing-"

// HashingEmbedder is a local, deterministic bag-of-words encoder. Each
// token is hashed into one of dimension buckets with a signed weight and the
// result is L2-normalized, so texts sharing words get a positive cosine
// similarity. It needs no model download and no network.
type HashingEmbedder struct {
	dimension int
	tokenizer *analyzer.Tokenizer
}

func NewHashingEmbedder(dimension int) *HashingEmbedder {
	if dimension <= 0 {
		dimension = 384
	}
	return &HashingEmbedder{dimension: dimension, tokenizer: analyzer.NewTokenizer()}
}

// ParseHashingModel extracts the dimension from a model name such as "hashing-384".
func ParseHashingModel(model string) (int, bool) {
	if !strings.HasPrefix(model, hashingPrefix) {
		return 0, false
	}
	var dim int
	if _, err := fmt.Sscanf(model[len(hashingPrefix):], "%d", &dim); err != nil || dim <= 0 {
		return 0, false
	}
	return dim, true
}

func (e *HashingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		embeddings[i] = e.embedOne(text)
	}
	return embeddings, nil
}

func (e *HashingEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dimension)
	for _, w := range e.tokenizer.Tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(w))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dimension))
		if sum&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func (e *HashingEmbedder) Dimension() int {
	return e.dimension
}

func (e *HashingEmbedder) ModelName() string {
	return fmt.Sprintf("%s%d", hashingPrefix, e.dimension)
}
