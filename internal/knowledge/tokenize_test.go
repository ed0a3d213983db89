package knowledge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yologdev/yocore/internal/model"
)

func TestTokenizeLatinStemsSuffixes(t *testing.T) {
	tokens := Tokenize("Running tests, tested fixes quickly")
	assert.Contains(t, tokens, "runn")
	assert.Contains(t, tokens, "test")
	assert.Contains(t, tokens, "fix")
}

func TestTokenizeDropsShortTokens(t *testing.T) {
	tokens := Tokenize("a I to be")
	for _, tok := range tokens {
		assert.GreaterOrEqual(t, len(tok), 2)
	}
}

func TestTokenizeCJKBigrams(t *testing.T) {
	tokens := Tokenize("日本語")
	assert.Equal(t, []string{"日本", "本語"}, tokens)
}

func TestTokenizeMixedRunEmitsBoth(t *testing.T) {
	tokens := Tokenize("hello日本語world")
	assert.Contains(t, tokens, "hello")
	assert.Contains(t, tokens, "world")
	assert.Contains(t, tokens, "日本")
}

func TestJaccardDedupScenario(t *testing.T) {
	a := NewSimilarityInput("Use JWT for auth", "Stateless scales better.")
	b := NewSimilarityInput("Use JWT for authentication", "Stateless scales better than sessions.")
	sim := Similarity(a, b)
	assert.GreaterOrEqual(t, sim, InsertionDuplicateThreshold)
}

func TestFuseRRFOrdering(t *testing.T) {
	fts := []RankedDoc{{MemoryID: 1, Rank: 1}, {MemoryID: 2, Rank: 2}, {MemoryID: 3, Rank: 3}}
	vector := []RankedDoc{{MemoryID: 3, Rank: 1}, {MemoryID: 1, Rank: 2}, {MemoryID: 2, Rank: 3}}

	fused := FuseRRF(fts, vector)
	order := []int64{fused[0].MemoryID, fused[1].MemoryID, fused[2].MemoryID}
	assert.Equal(t, []int64{1, 3, 2}, order)
}

func TestRankingDemotionScenario(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	lastAccess := now.Add(-100 * 24 * time.Hour)

	in := RankingInput{
		State: model.StateHigh, AccessCount: 3, Confidence: 0.8,
		IsValidated: false, ExtractedAt: now.Add(-200 * 24 * time.Hour), LastAccessAt: &lastAccess,
	}
	score := Score(in, now)
	assert.InDelta(t, 0.305, score, 1e-9)
	assert.Equal(t, model.StateLow, NextState(in, now))

	in.IsValidated = true
	assert.Equal(t, model.StateHigh, NextState(in, now))
}
