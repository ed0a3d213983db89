package knowledge

import (
	"context"
	"sort"

	"github.com/yologdev/yocore/internal/embeddings"
	"github.com/yologdev/yocore/internal/model"
	"github.com/yologdev/yocore/internal/storage"
)

// DefaultSearchLegLimit is K1/K2: the number of results each leg (FTS,
// vector) contributes before fusion.
const DefaultSearchLegLimit = 50

// HybridSearchMemories runs the FTS and vector legs independently, fuses
// them by Reciprocal Rank Fusion, and returns the top limit results as
// full Memory records in fused order. The type/tag filter in filter
// applies to both legs before fusion.
//
// On the ephemeral backend FTSSearchMemories returns a
// NOT_SUPPORTED_IN_MODE error; that error propagates unchanged rather
// than silently degrading to vector-only.
func HybridSearchMemories(ctx context.Context, backend storage.Backend, engine *embeddings.Engine, query string, filter model.MemoryFilter, limit int) ([]model.Memory, error) {
	ftsResults, err := backend.FTSSearchMemories(ctx, query, filter, DefaultSearchLegLimit)
	if err != nil {
		return nil, err
	}

	vecResults, err := vectorLeg(ctx, backend, engine, query, filter)
	if err != nil {
		return nil, err
	}

	fts := make([]RankedDoc, len(ftsResults))
	byID := make(map[int64]model.Memory, len(ftsResults)+len(vecResults))
	for i, r := range ftsResults {
		fts[i] = RankedDoc{MemoryID: r.Memory.ID, Rank: r.Rank}
		byID[r.Memory.ID] = r.Memory
	}

	vec := make([]RankedDoc, len(vecResults))
	for i, r := range vecResults {
		vec[i] = RankedDoc{MemoryID: r.memory.ID, Rank: i + 1}
		byID[r.memory.ID] = r.memory
	}

	fused := FuseRRF(fts, vec)
	if limit > 0 && limit < len(fused) {
		fused = fused[:limit]
	}

	out := make([]model.Memory, 0, len(fused))
	for _, f := range fused {
		if m, ok := byID[f.MemoryID]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

type scoredMemory struct {
	memory model.Memory
	score float64
}

// vectorLeg embeds query, scores it against every stored embedding for the
// project's non-removed memories filtered per the same MemoryFilter as the
// FTS leg, and returns the top DefaultSearchLegLimit by cosine similarity.
func vectorLeg(ctx context.Context, backend storage.Backend, engine *embeddings.Engine, query string, filter model.MemoryFilter) ([]scoredMemory, error) {
	embeddingsForProject, err := backend.ListMemoryEmbeddings(ctx, filter.ProjectID)
	if err != nil {
		return nil, err
	}
	if len(embeddingsForProject) == 0 {
		return nil, nil
	}

	queryVec := engine.Embed(query)

	allMemories, err := backend.ListMemories(ctx, model.MemoryFilter{
		ProjectID: filter.ProjectID,
		MemoryTypes: filter.MemoryTypes,
		Tags: filter.Tags,
		State: filter.State,
		Limit: 0,
	})
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]model.Memory, len(allMemories))
	for _, m := range allMemories {
		byID[m.ID] = m
	}

	scored := make([]scoredMemory, 0, len(embeddingsForProject))
	for _, e := range embeddingsForProject {
		m, ok := byID[e.MemoryID]
		if !ok {
			continue
		}
		scored = append(scored, scoredMemory{memory: m, score: embeddings.CosineSimilarity(queryVec, e.Vector)})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > DefaultSearchLegLimit {
		scored = scored[:DefaultSearchLegLimit]
	}
	return scored, nil
}
