package aiqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yologdev/yocore/internal/clock"
	"github.com/yologdev/yocore/internal/config"
	"github.com/yologdev/yocore/internal/events"
	"github.com/yologdev/yocore/internal/model"
	"github.com/yologdev/yocore/internal/storage"
	"github.com/yologdev/yocore/internal/storage/ephemeral"
)

func newTestQueue(t *testing.T, runner subprocessRunner) (*Queue, *ephemeral.Backend, *events.Bus[events.AiEvent]) {
	t.Helper()
	backend := ephemeral.New(0, 0, clock.Real{})
	bus := events.New[events.AiEvent]()
	q := New(config.AIConfig{MaxConcurrency: 2}, backend, bus, clock.Real{}, zap.NewNop())
	q.runner = runner
	return q, backend, bus
}

func seedSession(t *testing.T, backend storage.Backend) (projectID, sessionID string) {
	t.Helper()
	project, err := backend.UpsertProject(context.Background(), "/watch/proj1", "proj1")
	require.NoError(t, err)
	session, err := backend.FindOrCreateSession(context.Background(), project.ID, "/watch/proj1/s.jsonl", "claude_code")
	require.NoError(t, err)
	return project.ID, session.ID
}

func TestSubmit_MemoryExtractionPersistsAboveConfidenceGate(t *testing.T) {
	stdout := `{"memories":[
		{"type":"decision","title":"use WAL mode","content":"switched sqlite to WAL for durability","confidence":0.9},
		{"type":"fact","title":"low confidence fact","content":"barely relevant","confidence":0.2}
	]}`
	q, backend, bus := newTestQueue(t, func(ctx context.Context, cli config.AIConfig, prompt string, timeout time.Duration) (string, error) {
		return stdout, nil
	})
	sub := bus.Subscribe(8)
	defer sub.Unsubscribe()

	projectID, sessionID := seedSession(t, backend)
	messages := []model.Message{{Role: model.RoleHuman, SearchContent: "let's switch to WAL mode"}}

	task := NewMemoryExtractionTask(projectID, sessionID, messages, 15)
	require.NoError(t, q.Submit(context.Background(), task))

	mems, err := backend.ListMemories(context.Background(), model.MemoryFilter{ProjectID: projectID})
	require.NoError(t, err)
	require.Len(t, mems, 1)
	assert.Equal(t, "use WAL mode", mems[0].Title)

	var phases []events.AiPhase
	for i := 0; i < 2; i++ {
		phases = append(phases, (<-sub.Events()).Phase)
	}
	assert.Equal(t, []events.AiPhase{events.PhaseStart, events.PhaseComplete}, phases)
}

func TestSubmit_SkipsInsertionTimeDuplicate(t *testing.T) {
	stdout := `{"memories":[{"type":"decision","title":"use WAL mode","content":"switched sqlite to WAL for durability","confidence":0.9}]}`
	q, backend, _ := newTestQueue(t, func(ctx context.Context, cli config.AIConfig, prompt string, timeout time.Duration) (string, error) {
		return stdout, nil
	})

	projectID, sessionID := seedSession(t, backend)
	_, err := backend.InsertMemory(context.Background(), &model.Memory{
		ProjectID: projectID, SessionID: sessionID, MemoryType: model.MemoryDecision,
		Title: "use WAL mode", Content: "switched sqlite to WAL for durability", Confidence: 0.9, State: model.StateNew,
	})
	require.NoError(t, err)

	task := NewMemoryExtractionTask(projectID, sessionID, nil, 15)
	require.NoError(t, q.Submit(context.Background(), task))

	mems, err := backend.ListMemories(context.Background(), model.MemoryFilter{ProjectID: projectID})
	require.NoError(t, err)
	require.Len(t, mems, 1, "duplicate should not have been inserted")
}

func TestSubmit_SchemaErrorDoesNotRetry(t *testing.T) {
	calls := 0
	q, backend, bus := newTestQueue(t, func(ctx context.Context, cli config.AIConfig, prompt string, timeout time.Duration) (string, error) {
		calls++
		return "not json", nil
	})
	sub := bus.Subscribe(8)
	defer sub.Unsubscribe()

	projectID, sessionID := seedSession(t, backend)
	task := NewMemoryExtractionTask(projectID, sessionID, nil, 15)

	err := q.Submit(context.Background(), task)
	require.Error(t, err)
	assert.Equal(t, 1, calls, "schema errors must not retry")

	phases := []events.AiPhase{(<-sub.Events()).Phase, (<-sub.Events()).Phase}
	assert.Equal(t, []events.AiPhase{events.PhaseStart, events.PhaseError}, phases)
}

func TestSubmit_TransientErrorRetriesThenSucceeds(t *testing.T) {
	calls := 0
	q, backend, _ := newTestQueue(t, func(ctx context.Context, cli config.AIConfig, prompt string, timeout time.Duration) (string, error) {
		calls++
		if calls < 2 {
			return "", assert.AnError
		}
		return `{"title":"fixed WAL durability bug"}`, nil
	})

	_, sessionID := seedSession(t, backend)
	task := NewTitleGenerationTask(sessionID, nil)

	start := time.Now()
	require.NoError(t, q.Submit(context.Background(), task))
	assert.GreaterOrEqual(t, time.Since(start), retryBackoffBase)
	assert.Equal(t, 2, calls)

	sess, err := backend.GetSession(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Equal(t, "fixed WAL durability bug", sess.Title)
}

func TestSubmit_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	q, backend, _ := newTestQueue(t, func(ctx context.Context, cli config.AIConfig, prompt string, timeout time.Duration) (string, error) {
		calls++
		return "", assert.AnError
	})

	_, sessionID := seedSession(t, backend)
	task := NewTitleGenerationTask(sessionID, nil)

	err := q.Submit(context.Background(), task)
	require.Error(t, err)
	assert.Equal(t, maxRetries+1, calls)
}

func TestQueue_BoundsConcurrency(t *testing.T) {
	entered := make(chan struct{}, 2)
	release := make(chan struct{})

	backend := ephemeral.New(0, 0, clock.Real{})
	bus := events.New[events.AiEvent]()
	q := New(config.AIConfig{MaxConcurrency: 1}, backend, bus, clock.Real{}, zap.NewNop())
	q.runner = func(ctx context.Context, cli config.AIConfig, prompt string, timeout time.Duration) (string, error) {
		entered <- struct{}{}
		<-release
		return `{"title":"x"}`, nil
	}

	_, sessionA := seedSession(t, backend)
	project, err := backend.UpsertProject(context.Background(), "/watch/proj2", "proj2")
	require.NoError(t, err)
	sessionB, err := backend.FindOrCreateSession(context.Background(), project.ID, "/watch/proj2/s.jsonl", "claude_code")
	require.NoError(t, err)

	done := make(chan struct{}, 2)
	go func() {
		_ = q.Submit(context.Background(), NewTitleGenerationTask(sessionA, nil))
		done <- struct{}{}
	}()
	go func() {
		_ = q.Submit(context.Background(), NewTitleGenerationTask(sessionB.ID, nil))
		done <- struct{}{}
	}()

	<-entered
	select {
	case entered2 := <-entered:
		_ = entered2
		t.Fatal("second task entered the runner before the first released its permit")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-done
	<-done
}
