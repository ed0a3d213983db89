package scheduler

import (
	"context"

	"go.uber.org/zap"

	"github.com/yologdev/yocore/internal/knowledge"
	"github.com/yologdev/yocore/internal/model"
)

// skillDedupSweep mirrors memoryDedupSweep for skills, at a wider
// background-cleanup threshold. Skill has no removed state, so a
// detected duplicate is hard-deleted rather than soft-removed.
func (s *Scheduler) skillDedupSweep(ctx context.Context, batchSize int) {
	projects, err := s.storage.ListProjects(ctx)
	if err != nil {
		s.log.Error("skill dedup sweep: list projects", zap.Error(err))
		return
	}

	for _, project := range projects {
		s.dedupProjectSkills(ctx, project.ID, batchSize)
	}
}

func (s *Scheduler) dedupProjectSkills(ctx context.Context, projectID string, batchSize int) {
	pctx, cancel := s.perProjectDeadline(ctx)
	defer cancel()

	skills, err := s.storage.ListSkills(pctx, model.SkillFilter{ProjectID: projectID, Limit: batchSize})
	if err != nil {
		s.log.Error("skill dedup sweep: list skills", zap.String("project_id", projectID), zap.Error(err))
		return
	}

	deleted := map[int64]bool{}
	inputs := make([]knowledge.SimilarityInput, len(skills))
	for i, sk := range skills {
		inputs[i] = knowledge.NewSimilarityInput(sk.Name, sk.Description)
	}

	for i := range skills {
		if deleted[skills[i].ID] {
			continue
		}
		for j := i + 1; j < len(skills); j++ {
			if deleted[skills[j].ID] {
				continue
			}
			if knowledge.Similarity(inputs[i], inputs[j]) < knowledge.SkillCleanupThreshold {
				continue
			}

			newer := j
			if skills[j].ExtractedAt.Before(skills[i].ExtractedAt) {
				newer = i
			}

			if err := s.storage.DeleteSkill(pctx, skills[newer].ID); err != nil {
				s.log.Error("skill dedup sweep: delete skill", zap.Int64("skill_id", skills[newer].ID), zap.Error(err))
				continue
			}
			deleted[skills[newer].ID] = true
		}
	}
}
