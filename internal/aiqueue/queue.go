// Package aiqueue implements the bounded-concurrency AI task queue of
// : a semaphore-gated runner around subprocess invocations of
// an external AI CLI, used by the title, memory-extraction, skill-discovery
// and marker-detection features. Each task acquires a permit, emits a
// start event, spawns the CLI, decodes its JSON response, persists the
// result through the storage capability, and emits a completion or error
// event.
package aiqueue

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/yologdev/yocore/internal/clock"
	"github.com/yologdev/yocore/internal/config"
	"github.com/yologdev/yocore/internal/events"
	"github.com/yologdev/yocore/internal/storage"
)

// DefaultMaxConcurrency is used when config.AIConfig.MaxConcurrency is unset.
const DefaultMaxConcurrency = 3

// Task is one unit of AI-backed work: build a prompt, run it through the
// CLI, decode and persist the structured response.
type Task struct {
	Feature events.AiFeature
	ProjectID string
	SessionID string // empty for project-scoped tasks (e.g. skill cleanup has none)
	Timeout time.Duration

	// BuildPrompt returns the stdin payload to feed the CLI.
	BuildPrompt func() (string, error)

	// Decode parses the CLI's stdout as the feature's expected JSON shape.
	// Any non-nil error is treated as a schema violation and short-circuits
	// retry.
	Decode func(stdout string) (any, error)

	// Persist writes the decoded result through storage. Receives the
	// value Decode returned.
	Persist func(ctx context.Context, backend storage.Backend, decoded any) error
}

// Queue runs Tasks under a bounded-concurrency gate.
type Queue struct {
	sem *semaphore.Weighted
	cli config.AIConfig
	storage storage.Backend
	bus *events.Bus[events.AiEvent]
	clock clock.Clock
	log *zap.Logger
	runner subprocessRunner
	entropy *ulid.MonotonicEntropy
}

// New builds a Queue with permits from cfg.MaxConcurrency (or
// DefaultMaxConcurrency if unset).
func New(cfg config.AIConfig, backend storage.Backend, bus *events.Bus[events.AiEvent], clk clock.Clock, log *zap.Logger) *Queue {
	n := cfg.MaxConcurrency
	if n <= 0 {
		n = DefaultMaxConcurrency
	}
	return &Queue{
		sem: semaphore.NewWeighted(int64(n)),
		cli: cfg,
		storage: backend,
		bus: bus,
		clock: clk,
		log: log,
		runner: runSubprocess,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Submit blocks until a permit is available, then runs t to completion.
// The returned error is the task's final outcome after retries; callers
// typically log it and move on rather than propagating it, since one
// failed extraction must not block others.
func (q *Queue) Submit(ctx context.Context, t Task) error {
	if err := q.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer q.sem.Release(1)

	taskID, err := ulid.New(ulid.Timestamp(q.clock.Now()), q.entropy)
	if err != nil {
		taskID = ulid.ULID{}
	}
	log := q.log.With(zap.String("task_id", taskID.String()), zap.String("feature", string(t.Feature)))

	log.Info("ai task started", zap.String("project_id", t.ProjectID), zap.String("session_id", t.SessionID))
	q.bus.Publish(events.AiEvent{Feature: t.Feature, Phase: events.PhaseStart, ProjectID: t.ProjectID, SessionID: t.SessionID})

	runErr := q.runWithRetry(ctx, t)

	if runErr != nil {
		log.Warn("ai task failed", zap.Error(runErr))
		q.bus.Publish(events.AiEvent{Feature: t.Feature, Phase: events.PhaseError, ProjectID: t.ProjectID, SessionID: t.SessionID, Error: runErr.Error()})
		return runErr
	}

	log.Info("ai task complete")
	q.bus.Publish(events.AiEvent{Feature: t.Feature, Phase: events.PhaseComplete, ProjectID: t.ProjectID, SessionID: t.SessionID})
	return nil
}
