// Package embeddings provides a local text embedder. With no embedding
// model or ML inference library available and training one out of scope,
// this package implements a deterministic feature-hashing ("hashing
// trick") embedder: tokenize with the same tokenizer used for dedup and
// keyword search, hash each token into one of Dimensions buckets with a
// signed contribution, then L2-normalize. It is lazily constructed once
// and reused for the life of the process, via sync.Once, mirroring the
// load-once-cache-indefinitely contract a real model would need.
package embeddings

import (
	"hash/fnv"
	"math"
	"sync"

	"github.com/yologdev/yocore/internal/tokenize"
)

// Dimensions is the fixed embedding width requires (384-dim,
// L2-normalized).
const Dimensions = 384

// hashSalt is mixed into every token hash. It is a fixed constant, not a
// per-process random seed (hash/maphash's seed is randomized per process
// by design) — embeddings persisted by one process run must still be
// comparable to query vectors computed after a restart.
const hashSalt = "yocore-embeddings-v1"

// Engine embeds text into Dimensions-wide L2-normalized vectors.
type Engine struct{}

var (
	once sync.Once
	instance *Engine
)

// Get returns the process-wide embedding engine, constructing it on first
// call.
func Get() *Engine {
	once.Do(func() {
		instance = &Engine{}
	})
	return instance
}

// Embed tokenizes text and produces a 384-dim L2-normalized vector.
func (e *Engine) Embed(text string) []float32 {
	tokens := tokenize.Tokenize(text)
	vec := make([]float32, Dimensions)

	for _, tok := range tokens {
		bucket, sign := e.hashToken(tok)
		vec[bucket] += sign
	}

	normalize(vec)
	return vec
}

// EmbedBatch embeds each text independently.
func (e *Engine) EmbedBatch(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.Embed(t)
	}
	return out
}

// hashToken maps a token to a bucket in [0, Dimensions) and a sign in
// {-1, +1}, the standard hashing-trick construction that keeps the
// expected inner product of independent tokens near zero.
func (e *Engine) hashToken(tok string) (bucket int, sign float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(hashSalt))
	_, _ = h.Write([]byte(tok))
	sum := h.Sum64()

	bucket = int(sum % uint64(Dimensions))
	if sum&(1<<63) != 0 {
		sign = -1
	} else {
		sign = 1
	}
	return bucket, sign
}

func normalize(vec []float32) {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSquares))
	for i := range vec {
		vec[i] /= norm
	}
}

// CosineSimilarity computes the cosine similarity of two equal-length
// vectors, used by the vector leg of hybrid search.
func CosineSimilarity(a, b []float32) float64 {
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
