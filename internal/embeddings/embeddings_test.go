package embeddings

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedIsL2Normalized(t *testing.T) {
	e := Get()
	vec := e.Embed("the quick brown fox jumps over the lazy dog")
	require.Len(t, vec, Dimensions)

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	norm := math.Sqrt(sumSquares)
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestEmbedDeterministic(t *testing.T) {
	e := Get()
	a := e.Embed("switched to WAL mode for durability")
	b := e.Embed("switched to WAL mode for durability")
	assert.Equal(t, a, b)
}

func TestEmbedEmptyTextIsZeroVector(t *testing.T) {
	e := Get()
	vec := e.Embed("")
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestCosineSimilarityIdenticalIsOne(t *testing.T) {
	e := Get()
	vec := e.Embed("hybrid search uses reciprocal rank fusion")
	assert.InDelta(t, 1.0, CosineSimilarity(vec, vec), 1e-6)
}

func TestCosineSimilarityUnrelatedIsLow(t *testing.T) {
	e := Get()
	a := e.Embed("database migrations and schema versioning")
	b := e.Embed("coffee brewing temperature and grind size")
	assert.Less(t, CosineSimilarity(a, b), 0.5)
}

func TestEmbedBatchMatchesIndividualEmbed(t *testing.T) {
	e := Get()
	texts := []string{"alpha beta", "gamma delta"}
	batch := e.EmbedBatch(texts)
	for i, text := range texts {
		assert.Equal(t, e.Embed(text), batch[i])
	}
}
