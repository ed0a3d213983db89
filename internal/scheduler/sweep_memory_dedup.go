package scheduler

import (
	"context"

	"go.uber.org/zap"

	"github.com/yologdev/yocore/internal/knowledge"
	"github.com/yologdev/yocore/internal/model"
)

// memoryDedupSweep runs a pairwise near-duplicate scan over each project's
// non-removed memories, keeping the older (earlier extracted_at) of any
// pair scoring at or above knowledge.MemoryCleanupThreshold and
// soft-removing the newer.
func (s *Scheduler) memoryDedupSweep(ctx context.Context, batchSize int) {
	projects, err := s.storage.ListProjects(ctx)
	if err != nil {
		s.log.Error("memory dedup sweep: list projects", zap.Error(err))
		return
	}

	for _, project := range projects {
		s.dedupProjectMemories(ctx, project.ID, batchSize)
	}
}

func (s *Scheduler) dedupProjectMemories(ctx context.Context, projectID string, batchSize int) {
	pctx, cancel := s.perProjectDeadline(ctx)
	defer cancel()

	memories, err := s.storage.ListMemories(pctx, model.MemoryFilter{ProjectID: projectID, Limit: batchSize})
	if err != nil {
		s.log.Error("memory dedup sweep: list memories", zap.String("project_id", projectID), zap.Error(err))
		return
	}

	removed := map[int64]bool{}
	inputs := make([]knowledge.SimilarityInput, len(memories))
	for i, m := range memories {
		inputs[i] = knowledge.NewSimilarityInput(m.Title, m.Content)
	}

	for i := range memories {
		if memories[i].State == model.StateRemoved || removed[memories[i].ID] {
			continue
		}
		for j := i + 1; j < len(memories); j++ {
			if memories[j].State == model.StateRemoved || removed[memories[j].ID] {
				continue
			}
			if knowledge.Similarity(inputs[i], inputs[j]) < knowledge.MemoryCleanupThreshold {
				continue
			}

			older, newer := i, j
			if memories[j].ExtractedAt.Before(memories[i].ExtractedAt) {
				older, newer = j, i
			}
			_ = older

			if err := s.storage.SoftRemoveMemory(pctx, memories[newer].ID); err != nil {
				s.log.Error("memory dedup sweep: soft remove", zap.Int64("memory_id", memories[newer].ID), zap.Error(err))
				continue
			}
			removed[memories[newer].ID] = true
		}
	}
}
