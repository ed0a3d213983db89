package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/yologdev/yocore/internal/clock"
	"github.com/yologdev/yocore/internal/config"
	"github.com/yologdev/yocore/internal/events"
	"github.com/yologdev/yocore/internal/model"
	"github.com/yologdev/yocore/internal/storage/ephemeral"
)

func newTestScheduler(t *testing.T, backend *ephemeral.Backend, clk clock.Clock, bus *events.Bus[events.AiEvent]) *Scheduler {
	t.Helper()
	cfg := config.SchedulerConfig{
		Ranking: config.SweepConfig{IntervalHours: 6, BatchSize: 500},
		DuplicateCleanup: config.SweepConfig{IntervalHours: 24, BatchSize: 500},
		EmbeddingRefresh: config.SweepConfig{IntervalHours: 12, BatchSize: 100},
		SkillCleanup: config.SweepConfig{IntervalHours: 24, BatchSize: 500},
	}
	return New(cfg, backend, bus, clk, zap.NewNop(), func() bool { return true })
}

func TestRankingSweep_PromotesAndDemotes(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFrozen(now)
	backend := ephemeral.New(0, 0, clk)
	bus := events.New[events.AiEvent]()

	project, err := backend.UpsertProject(ctx, "/repo/a", "a")
	require.NoError(t, err)

	// Heavily accessed, high-confidence memory should promote new -> high.
	hotID, err := backend.InsertMemory(ctx, &model.Memory{
		ProjectID: project.ID,
		MemoryType: model.MemoryFact,
		Title: "hot",
		Content: "accessed a lot",
		Confidence: 0.9,
		State: model.StateNew,
		AccessCount: 10,
		ExtractedAt: now.Add(-40 * 24 * time.Hour),
	})
	require.NoError(t, err)

	// Stale, never-accessed, low-confidence memory should age out to removed.
	coldID, err := backend.InsertMemory(ctx, &model.Memory{
		ProjectID: project.ID,
		MemoryType: model.MemoryFact,
		Title: "cold",
		Content: "never touched",
		Confidence: 0.1,
		State: model.StateNew,
		AccessCount: 0,
		ExtractedAt: now.Add(-60 * 24 * time.Hour),
	})
	require.NoError(t, err)

	sub := bus.Subscribe(4)
	defer sub.Unsubscribe()

	s := newTestScheduler(t, backend, clk, bus)
	s.rankingSweep(ctx, 500)

	hot, err := backend.GetMemory(ctx, hotID)
	require.NoError(t, err)
	require.Equal(t, model.StateHigh, hot.State)

	cold, err := backend.GetMemory(ctx, coldID)
	require.NoError(t, err)
	require.Equal(t, model.StateRemoved, cold.State)

	select {
	case ev := <-sub.Events():
		require.Equal(t, events.FeatureRanking, ev.Feature)
		require.Equal(t, events.PhaseComplete, ev.Phase)
		require.NotNil(t, ev.RankingComplete)
		require.Equal(t, 1, ev.RankingComplete.Promoted)
		require.Equal(t, 1, ev.RankingComplete.Removed)
	default:
		t.Fatal("expected a RankingComplete event")
	}
}

func TestRankingSweep_ValidatedMemoryNeverDemoted(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFrozen(now)
	backend := ephemeral.New(0, 0, clk)
	bus := events.New[events.AiEvent]()

	project, err := backend.UpsertProject(ctx, "/repo/b", "b")
	require.NoError(t, err)

	id, err := backend.InsertMemory(ctx, &model.Memory{
		ProjectID: project.ID,
		MemoryType: model.MemoryFact,
		Title: "validated",
		Content: "manually confirmed",
		Confidence: 0.1,
		IsValidated: true,
		State: model.StateNew,
		AccessCount: 0,
		ExtractedAt: now.Add(-90 * 24 * time.Hour),
	})
	require.NoError(t, err)

	s := newTestScheduler(t, backend, clk, bus)
	s.rankingSweep(ctx, 500)

	m, err := backend.GetMemory(ctx, id)
	require.NoError(t, err)
	require.Equal(t, model.StateNew, m.State)
}

func TestMemoryDedupSweep_SoftRemovesNewerDuplicate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFrozen(now)
	backend := ephemeral.New(0, 0, clk)
	bus := events.New[events.AiEvent]()

	project, err := backend.UpsertProject(ctx, "/repo/c", "c")
	require.NoError(t, err)

	olderID, err := backend.InsertMemory(ctx, &model.Memory{
		ProjectID: project.ID,
		MemoryType: model.MemoryFact,
		Title: "use postgres connection pooling",
		Content: "configure pgbouncer for the api service",
		Confidence: 0.8,
		State: model.StateNew,
		ExtractedAt: now.Add(-48 * time.Hour),
	})
	require.NoError(t, err)

	newerID, err := backend.InsertMemory(ctx, &model.Memory{
		ProjectID: project.ID,
		MemoryType: model.MemoryFact,
		Title: "use postgres connection pooling",
		Content: "configure pgbouncer for the api service",
		Confidence: 0.8,
		State: model.StateNew,
		ExtractedAt: now,
	})
	require.NoError(t, err)

	s := newTestScheduler(t, backend, clk, bus)
	s.memoryDedupSweep(ctx, 500)

	older, err := backend.GetMemory(ctx, olderID)
	require.NoError(t, err)
	require.NotEqual(t, model.StateRemoved, older.State)

	newer, err := backend.GetMemory(ctx, newerID)
	require.NoError(t, err)
	require.Equal(t, model.StateRemoved, newer.State)
}

func TestSkillDedupSweep_DeletesNewerDuplicate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFrozen(now)
	backend := ephemeral.New(0, 0, clk)
	bus := events.New[events.AiEvent]()

	project, err := backend.UpsertProject(ctx, "/repo/d", "d")
	require.NoError(t, err)

	olderID, err := backend.InsertSkill(ctx, &model.Skill{
		ProjectID: project.ID,
		Name: "deploy via github actions",
		Description: "build, test, push image, roll out with kubectl",
		Steps: []string{"build", "test", "push", "rollout"},
		Confidence: 0.85,
		ExtractedAt: now.Add(-48 * time.Hour),
	})
	require.NoError(t, err)

	newerID, err := backend.InsertSkill(ctx, &model.Skill{
		ProjectID: project.ID,
		Name: "deploy via github actions",
		Description: "build, test, push image, roll out with kubectl",
		Steps: []string{"build", "test", "push", "rollout"},
		Confidence: 0.85,
		ExtractedAt: now,
	})
	require.NoError(t, err)

	s := newTestScheduler(t, backend, clk, bus)
	s.skillDedupSweep(ctx, 500)

	skills, err := backend.ListSkills(ctx, model.SkillFilter{ProjectID: project.ID, Limit: 0})
	require.NoError(t, err)

	var ids []int64
	for _, sk := range skills {
		ids = append(ids, sk.ID)
	}
	require.Contains(t, ids, olderID)
	require.NotContains(t, ids, newerID)
}

func TestEmbeddingBackfillSweep_FillsMissingVectors(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewFrozen(now)
	backend := ephemeral.New(0, 0, clk)
	bus := events.New[events.AiEvent]()

	project, err := backend.UpsertProject(ctx, "/repo/e", "e")
	require.NoError(t, err)

	memID, err := backend.InsertMemory(ctx, &model.Memory{
		ProjectID: project.ID,
		MemoryType: model.MemoryFact,
		Title: "needs embedding",
		Content: "this memory has no vector yet",
		Confidence: 0.8,
		State: model.StateNew,
	})
	require.NoError(t, err)

	skillID, err := backend.InsertSkill(ctx, &model.Skill{
		ProjectID: project.ID,
		Name: "needs embedding",
		Description: "this skill has no vector yet",
		Confidence: 0.8,
	})
	require.NoError(t, err)

	missingBefore, err := backend.ListMemoriesMissingEmbeddings(ctx, 100)
	require.NoError(t, err)
	require.Len(t, missingBefore, 1)

	s := newTestScheduler(t, backend, clk, bus)
	s.embeddingBackfillSweep(ctx, 100)

	missingAfter, err := backend.ListMemoriesMissingEmbeddings(ctx, 100)
	require.NoError(t, err)
	require.Empty(t, missingAfter)

	missingSkillsAfter, err := backend.ListSkillsMissingEmbeddings(ctx, 100)
	require.NoError(t, err)
	require.Empty(t, missingSkillsAfter)

	_ = memID
	_ = skillID
}

func TestRunOnce_SkipsWhenAIInactive(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFrozen(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	backend := ephemeral.New(0, 0, clk)
	bus := events.New[events.AiEvent]()

	ran := false
	s := New(config.SchedulerConfig{}, backend, bus, clk, zap.NewNop(), func() bool { return false })

	sub := bus.Subscribe(4)
	defer sub.Unsubscribe()

	s.runOnce(ctx, sweep{name: "noop", run: func(context.Context, int) { ran = true }})

	require.False(t, ran)
	select {
	case ev := <-sub.Events():
		t.Fatalf("expected no event, got %+v", ev)
	default:
	}
}

func TestStartStop_LeavesNoGoroutinesRunning(t *testing.T) {
	defer goleak.VerifyNone(t)

	clk := clock.NewFrozen(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	backend := ephemeral.New(0, 0, clk)
	bus := events.New[events.AiEvent]()

	s := newTestScheduler(t, backend, clk, bus)
	s.Start(context.Background())
	s.Stop()
}

func TestRunOnce_RecoversFromPanic(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFrozen(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	backend := ephemeral.New(0, 0, clk)
	bus := events.New[events.AiEvent]()

	s := New(config.SchedulerConfig{}, backend, bus, clk, zap.NewNop(), func() bool { return true })

	sub := bus.Subscribe(4)
	defer sub.Unsubscribe()

	require.NotPanics(t, func() {
		s.runOnce(ctx, sweep{name: "boom", run: func(context.Context, int) { panic("kaboom") }})
	})

	var gotStart, gotError bool
	for i := 0; i < 2; i++ {
		select {
		case ev := <-sub.Events():
			if ev.Phase == events.PhaseStart {
				gotStart = true
			}
			if ev.Phase == events.PhaseError {
				gotError = true
			}
		case <-time.After(time.Second):
		}
	}
	require.True(t, gotStart)
	require.True(t, gotError)
}
