package scheduler

import (
	"context"

	"go.uber.org/zap"

	"github.com/yologdev/yocore/internal/embeddings"
)

// embeddingBackfillSweep fills in embeddings for memories and skills that
// were inserted before an embedding was computed for them, or whose
// embedding failed at extraction time.
func (s *Scheduler) embeddingBackfillSweep(ctx context.Context, batchSize int) {
	pctx, cancel := s.perProjectDeadline(ctx)
	defer cancel()

	engine := embeddings.Get()

	memories, err := s.storage.ListMemoriesMissingEmbeddings(pctx, batchSize)
	if err != nil {
		s.log.Error("embedding backfill: list memories", zap.Error(err))
	} else if len(memories) > 0 {
		texts := make([]string, len(memories))
		for i, m := range memories {
			texts[i] = m.Title + "\n" + m.Content
		}
		vectors := engine.EmbedBatch(texts)
		for i, m := range memories {
			if err := s.storage.PutMemoryEmbedding(pctx, m.ID, vectors[i]); err != nil {
				s.log.Error("embedding backfill: put memory embedding", zap.Int64("memory_id", m.ID), zap.Error(err))
			}
		}
	}

	skills, err := s.storage.ListSkillsMissingEmbeddings(pctx, batchSize)
	if err != nil {
		s.log.Error("embedding backfill: list skills", zap.Error(err))
		return
	}
	if len(skills) == 0 {
		return
	}
	texts := make([]string, len(skills))
	for i, sk := range skills {
		texts[i] = sk.Name + "\n" + sk.Description
	}
	vectors := engine.EmbedBatch(texts)
	for i, sk := range skills {
		if err := s.storage.PutSkillEmbedding(pctx, sk.ID, vectors[i]); err != nil {
			s.log.Error("embedding backfill: put skill embedding", zap.Int64("skill_id", sk.ID), zap.Error(err))
		}
	}
}
