// Package scheduler runs four independent periodic maintenance sweeps:
// memory ranking, memory duplicate cleanup, embedding backfill, and skill
// duplicate cleanup. Each sweep is its own ticker-plus-stop-channel loop,
// staggered at startup so four sweeps never collide on their first tick.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yologdev/yocore/internal/clock"
	"github.com/yologdev/yocore/internal/config"
	"github.com/yologdev/yocore/internal/events"
	"github.com/yologdev/yocore/internal/storage"
)

// sweepDeadline bounds how long a single project's pass within one sweep
// may run.
const sweepDeadline = 90 * time.Second

// staggerStep separates each sweep's first tick from the others so four
// sweeps never start work in the same instant.
const staggerStep = 90 * time.Second

// sweep is one periodic maintenance task.
type sweep struct {
	name string
	interval time.Duration
	run func(ctx context.Context, batchSize int)
	batch int
}

// Scheduler owns the four sweep tickers.
type Scheduler struct {
	cfg config.SchedulerConfig
	storage storage.Backend
	bus *events.Bus[events.AiEvent]
	clock clock.Clock
	log *zap.Logger
	aiActive func() bool

	cancel context.CancelFunc
	done chan struct{}
}

// New builds a Scheduler. aiActive reports whether any AI feature flag is
// on; every sweep is skipped entirely while it returns false.
func New(cfg config.SchedulerConfig, backend storage.Backend, bus *events.Bus[events.AiEvent], clk clock.Clock, log *zap.Logger, aiActive func() bool) *Scheduler {
	return &Scheduler{cfg: cfg, storage: backend, bus: bus, clock: clk, log: log, aiActive: aiActive}
}

// Start launches all four sweeps as background goroutines. Non-blocking.
func (s *Scheduler) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	sweeps := []sweep{
		{name: "memory_ranking", interval: hours(s.cfg.Ranking.IntervalHours, 6), run: s.rankingSweep, batch: orDefault(s.cfg.Ranking.BatchSize, 500)},
		{name: "memory_duplicate_cleanup", interval: hours(s.cfg.DuplicateCleanup.IntervalHours, 24), run: s.memoryDedupSweep, batch: orDefault(s.cfg.DuplicateCleanup.BatchSize, 500)},
		{name: "embedding_backfill", interval: hours(s.cfg.EmbeddingRefresh.IntervalHours, 12), run: s.embeddingBackfillSweep, batch: orDefault(s.cfg.EmbeddingRefresh.BatchSize, 100)},
		{name: "skill_duplicate_cleanup", interval: hours(s.cfg.SkillCleanup.IntervalHours, 24), run: s.skillDedupSweep, batch: orDefault(s.cfg.SkillCleanup.BatchSize, 500)},
	}

	s.done = make(chan struct{}, len(sweeps))
	for i, sw := range sweeps {
		go s.runSweepLoop(runCtx, sw, time.Duration(i)*staggerStep)
	}
}

// Stop cancels every sweep loop and waits for them to exit.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	for range cap(s.done) {
		<-s.done
	}
}

func (s *Scheduler) runSweepLoop(ctx context.Context, sw sweep, initialDelay time.Duration) {
	defer func() { s.done <- struct{}{} }()

	select {
	case <-time.After(initialDelay):
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	s.runOnce(ctx, sw)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx, sw)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, sw sweep) {
	if !s.aiActive() {
		return
	}

	s.log.Info("scheduler sweep start", zap.String("task", sw.name))
	s.bus.Publish(events.AiEvent{Feature: events.FeatureScheduler, Phase: events.PhaseStart, TaskName: sw.name})

	func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("scheduler sweep panicked", zap.String("task", sw.name), zap.Any("panic", r))
				s.bus.Publish(events.AiEvent{Feature: events.FeatureScheduler, Phase: events.PhaseError, TaskName: sw.name, Error: "panic during sweep"})
			}
		}()
		sw.run(ctx, sw.batch)
	}()

	s.log.Info("scheduler sweep complete", zap.String("task", sw.name))
	s.bus.Publish(events.AiEvent{Feature: events.FeatureScheduler, Phase: events.PhaseComplete, TaskName: sw.name})
}

// perProjectDeadline returns a context bounded by sweepDeadline, derived
// from ctx, for one project's pass within a sweep.
func (s *Scheduler) perProjectDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, sweepDeadline)
}

func hours(n, def int) time.Duration {
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Hour
}

func orDefault(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
