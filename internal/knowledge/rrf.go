package knowledge

import "sort"

// RRFConstant is the k in RRF(d) = sum 1/(k + rank_R(d)).
const RRFConstant = 60

// RankedDoc is one ranked result from either the keyword (FTS) or vector
// search leg, identified by MemoryID so both legs can be fused by key.
type RankedDoc struct {
	MemoryID int64
	Rank int // 1-based
}

// FusedResult is one document after Reciprocal Rank Fusion.
type FusedResult struct {
	MemoryID int64
	Score float64
}

// FuseRRF combines the FTS and vector ranked lists via Reciprocal Rank
// Fusion: a document present in only one list contributes
// only that list's term. Results are sorted by descending fused score.
func FuseRRF(fts, vector []RankedDoc) []FusedResult {
	scores := make(map[int64]float64)
	for _, d := range fts {
		scores[d.MemoryID] += 1.0 / float64(RRFConstant+d.Rank)
	}
	for _, d := range vector {
		scores[d.MemoryID] += 1.0 / float64(RRFConstant+d.Rank)
	}

	out := make([]FusedResult, 0, len(scores))
	for id, score := range scores {
		out = append(out, FusedResult{MemoryID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].MemoryID < out[j].MemoryID
	})
	return out
}
