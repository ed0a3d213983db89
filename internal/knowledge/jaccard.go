package knowledge

// TokenSet reduces a token multiset to its set-of-tokens before Jaccard
// comparison.
func TokenSet(text string) map[string]struct{} {
	tokens := Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Jaccard computes |A ∩ B| / |A ∪ B| over two token sets. Two empty sets
// are defined as dissimilar (0), matching the convention that an empty
// field never counts as a duplicate match.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// SimilarityInput is the title/content pair compared by Similarity.
type SimilarityInput struct {
	TitleTokens map[string]struct{}
	ContentTokens map[string]struct{}
}

// NewSimilarityInput tokenizes title and content once, for reuse across
// the O(N^2) pairwise cleanup scan.
func NewSimilarityInput(title, content string) SimilarityInput {
	return SimilarityInput{TitleTokens: TokenSet(title), ContentTokens: TokenSet(content)}
}

// Similarity computes the weighted title/content similarity:
// sim = 0.6*jaccard(title) + 0.4*jaccard(content).
func Similarity(a, b SimilarityInput) float64 {
	return 0.6*Jaccard(a.TitleTokens, b.TitleTokens) + 0.4*Jaccard(a.ContentTokens, b.ContentTokens)
}

const (
	// InsertionDuplicateThreshold rejects a new memory whose similarity to
	// an existing non-removed memory in the same project meets or exceeds
	// this value.
	InsertionDuplicateThreshold = 0.65
	// MemoryCleanupThreshold is the background-sweep soft-remove threshold
	// for memories.
	MemoryCleanupThreshold = 0.75
	// SkillCleanupThreshold is the background-sweep soft-remove threshold
	// for skills (same algorithm, higher bar).
	SkillCleanupThreshold = 0.80
	// DefaultCleanupBatchSize bounds the pairwise scan per sweep.
	DefaultCleanupBatchSize = 500
)
