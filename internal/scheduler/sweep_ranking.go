package scheduler

import (
	"context"

	"go.uber.org/zap"

	"github.com/yologdev/yocore/internal/events"
	"github.com/yologdev/yocore/internal/knowledge"
	"github.com/yologdev/yocore/internal/model"
)

// rankingSweep evaluates the state-transition table the for
// every non-removed memory, per project.
func (s *Scheduler) rankingSweep(ctx context.Context, batchSize int) {
	projects, err := s.storage.ListProjects(ctx)
	if err != nil {
		s.log.Error("ranking sweep: list projects", zap.Error(err))
		return
	}

	for _, project := range projects {
		s.rankProject(ctx, project.ID, batchSize)
	}
}

func (s *Scheduler) rankProject(ctx context.Context, projectID string, batchSize int) {
	pctx, cancel := s.perProjectDeadline(ctx)
	defer cancel()

	memories, err := s.storage.ListMemories(pctx, model.MemoryFilter{ProjectID: projectID, Limit: batchSize})
	if err != nil {
		s.log.Error("ranking sweep: list memories", zap.String("project_id", projectID), zap.Error(err))
		return
	}

	now := s.clock.Now()
	var promoted, demoted, removed int

	for _, m := range memories {
		if m.State == model.StateRemoved {
			continue
		}

		next := knowledge.NextState(knowledge.RankingInput{
			State: m.State,
			AccessCount: m.AccessCount,
			Confidence: m.Confidence,
			IsValidated: m.IsValidated,
			ExtractedAt: m.ExtractedAt,
			LastAccessAt: m.LastAccessAt,
		}, now)

		if next == m.State {
			continue
		}
		if err := s.storage.UpdateMemoryState(pctx, m.ID, next); err != nil {
			s.log.Error("ranking sweep: update state", zap.Int64("memory_id", m.ID), zap.Error(err))
			continue
		}

		switch next {
		case model.StateHigh:
			promoted++
		case model.StateLow:
			demoted++
		case model.StateRemoved:
			removed++
		}
	}

	s.bus.Publish(events.AiEvent{
		Feature: events.FeatureRanking,
		Phase: events.PhaseComplete,
		ProjectID: projectID,
		RankingComplete: &events.RankingComplete{
			ProjectID: projectID, Promoted: promoted, Demoted: demoted, Removed: removed,
		},
	})
}
