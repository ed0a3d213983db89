package ephemeral

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yologdev/yocore/internal/clock"
	"github.com/yologdev/yocore/internal/errors"
	"github.com/yologdev/yocore/internal/model"
)

func TestUpsertProjectIdempotent(t *testing.T) {
	b := New(0, 0, clock.NewFrozen(time.Unix(0, 0)))
	ctx := context.Background()

	p1, err := b.UpsertProject(ctx, "/repo/a", "a")
	require.NoError(t, err)
	p2, err := b.UpsertProject(ctx, "/repo/a", "a")
	require.NoError(t, err)
	assert.Equal(t, p1.ID, p2.ID)
}

func TestAppendThenReplaceSessionMessages(t *testing.T) {
	b := New(0, 0, clock.NewFrozen(time.Unix(0, 0)))
	ctx := context.Background()

	p, _ := b.UpsertProject(ctx, "/repo/a", "a")
	s, err := b.FindOrCreateSession(ctx, p.ID, "/repo/a/s.jsonl", "claude_code")
	require.NoError(t, err)

	require.NoError(t, b.AppendSessionMessages(ctx, s.ID, []model.Message{
		{SequenceNum: 1, Role: model.RoleHuman, SearchContent: "hi"},
	}, 10))

	got, err := b.ListSessionMessages(ctx, s.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)

	require.NoError(t, b.ReplaceSessionMessages(ctx, s.ID, []model.Message{
		{SequenceNum: 1, Role: model.RoleHuman, SearchContent: "hi"},
		{SequenceNum: 2, Role: model.RoleAssistant, SearchContent: "hello"},
	}, 20))

	got, err = b.ListSessionMessages(ctx, s.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	session, err := b.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, session.MaxSequence)
	assert.Equal(t, 2, session.MessageCount)
}

func TestLRUEvictsOldestSession(t *testing.T) {
	b := New(2, 0, clock.NewFrozen(time.Unix(0, 0)))
	ctx := context.Background()

	p, _ := b.UpsertProject(ctx, "/repo/a", "a")
	s1, _ := b.FindOrCreateSession(ctx, p.ID, "/repo/a/1.jsonl", "claude_code")
	_, _ = b.FindOrCreateSession(ctx, p.ID, "/repo/a/2.jsonl", "claude_code")
	_, _ = b.FindOrCreateSession(ctx, p.ID, "/repo/a/3.jsonl", "claude_code")

	_, err := b.GetSession(ctx, s1.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestFTSSearchNotSupported(t *testing.T) {
	b := New(0, 0, nil)
	_, _, err := b.FTSSearchMessages(context.Background(), "q", "p", 10, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotSupportedMode))
}

func TestMemoryLifecycle(t *testing.T) {
	b := New(0, 0, clock.NewFrozen(time.Unix(0, 0)))
	ctx := context.Background()

	p, _ := b.UpsertProject(ctx, "/repo/a", "a")
	s, _ := b.FindOrCreateSession(ctx, p.ID, "/repo/a/s.jsonl", "claude_code")

	id, err := b.InsertMemory(ctx, &model.Memory{ProjectID: p.ID, SessionID: s.ID, MemoryType: model.MemoryFact, Title: "t", Content: "c", Confidence: 0.8})
	require.NoError(t, err)

	require.NoError(t, b.UpdateMemoryState(ctx, id, model.StateHigh))
	m, err := b.GetMemory(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StateHigh, m.State)

	vec := make([]float32, 384)
	require.NoError(t, b.PutMemoryEmbedding(ctx, id, vec))
	e, err := b.GetMemoryEmbedding(ctx, id)
	require.NoError(t, err)
	assert.Len(t, e.Vector, 384)
}
