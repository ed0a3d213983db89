package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yologdev/yocore/internal/clock"
	"github.com/yologdev/yocore/internal/embeddings"
	"github.com/yologdev/yocore/internal/model"
	"github.com/yologdev/yocore/internal/storage/ephemeral"
)

// makeRequest builds a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
}

// resultPayload decodes a tool result's text content into a map.
func resultPayload(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	return payload
}

func newTestHandlers(t *testing.T) (*Handlers, *ephemeral.Backend) {
	t.Helper()
	backend := ephemeral.New(0, 0, clock.Real{})
	h := NewHandlers(backend, embeddings.Get(), zap.NewNop())
	return h, backend
}

func TestHandleSaveLifeboatAndSessionContext(t *testing.T) {
	h, backend := newTestHandlers(t)
	ctx := context.Background()

	project, err := backend.UpsertProject(ctx, "/repo/a", "a")
	require.NoError(t, err)
	session, err := backend.FindOrCreateSession(ctx, project.ID, "/repo/a/s.jsonl", "claude_code")
	require.NoError(t, err)

	saveResult, err := h.HandleSaveLifeboat(ctx, makeRequest(map[string]any{
		"session_id": session.ID,
		"project_id": project.ID,
		"active_task": "auth",
		"recent_decisions": []any{"jwt"},
		"open_questions": []any{"refresh"},
		"source": "compaction",
	}))
	require.NoError(t, err)
	require.False(t, saveResult.IsError)

	getResult, err := h.HandleSessionContext(ctx, makeRequest(map[string]any{
		"session_id": session.ID,
	}))
	require.NoError(t, err)
	require.False(t, getResult.IsError)

	payload := resultPayload(t, getResult)
	require.Equal(t, "auth", payload["ActiveTask"])
	require.Equal(t, []any{"jwt"}, payload["RecentDecisions"])
	require.Equal(t, []any{"refresh"}, payload["OpenQuestions"])
}

func TestHandleSessionContext_MissingSessionReturnsNotFound(t *testing.T) {
	h, _ := newTestHandlers(t)
	ctx := context.Background()

	result, err := h.HandleSessionContext(ctx, makeRequest(map[string]any{
		"session_id": "does-not-exist",
	}))
	require.NoError(t, err)
	require.True(t, result.IsError)

	payload := resultPayload(t, result)
	errObj := payload["error"].(map[string]any)
	require.Equal(t, "NOT_FOUND", errObj["code"])
}

func TestHandleSaveLifeboat_RequiresSessionAndProject(t *testing.T) {
	h, _ := newTestHandlers(t)
	ctx := context.Background()

	result, err := h.HandleSaveLifeboat(ctx, makeRequest(map[string]any{"session_id": "s1"}))
	require.NoError(t, err)
	require.True(t, result.IsError)

	payload := resultPayload(t, result)
	errObj := payload["error"].(map[string]any)
	require.Equal(t, "INVALID_REQUEST", errObj["code"])
}

func TestHandleRecentMemories_ExcludesRemovedAndRespectsLimit(t *testing.T) {
	h, backend := newTestHandlers(t)
	ctx := context.Background()

	project, err := backend.UpsertProject(ctx, "/repo/b", "b")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := backend.InsertMemory(ctx, &model.Memory{
			ProjectID: project.ID,
			MemoryType: model.MemoryFact,
			Title: "memory",
			Content: "content",
			Confidence: 0.5,
			State: model.StateNew,
		})
		require.NoError(t, err)
	}
	removedID, err := backend.InsertMemory(ctx, &model.Memory{
		ProjectID: project.ID,
		MemoryType: model.MemoryFact,
		Title: "removed",
		Content: "content",
		Confidence: 0.5,
		State: model.StateRemoved,
	})
	require.NoError(t, err)

	result, err := h.HandleRecentMemories(ctx, makeRequest(map[string]any{
		"project_id": project.ID,
		"limit": 2,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	payload := resultPayload(t, result)
	memories := payload["memories"].([]any)
	require.Len(t, memories, 2)
	for _, m := range memories {
		require.NotEqual(t, float64(removedID), m.(map[string]any)["ID"])
	}
}

func TestHandleProjectContext_ReturnsOnlyHighStateMemories(t *testing.T) {
	h, backend := newTestHandlers(t)
	ctx := context.Background()

	project, err := backend.UpsertProject(ctx, "/repo/c", "c")
	require.NoError(t, err)

	_, err = backend.InsertMemory(ctx, &model.Memory{
		ProjectID: project.ID,
		MemoryType: model.MemoryFact,
		Title: "promoted",
		Content: "content",
		Confidence: 0.9,
		State: model.StateHigh,
	})
	require.NoError(t, err)
	_, err = backend.InsertMemory(ctx, &model.Memory{
		ProjectID: project.ID,
		MemoryType: model.MemoryFact,
		Title: "not promoted",
		Content: "content",
		Confidence: 0.2,
		State: model.StateNew,
	})
	require.NoError(t, err)
	_, err = backend.InsertSkill(ctx, &model.Skill{
		ProjectID: project.ID,
		Name: "deploy",
		Description: "deploy the service",
		Confidence: 0.8,
	})
	require.NoError(t, err)

	result, err := h.HandleProjectContext(ctx, makeRequest(map[string]any{
		"project_id": project.ID,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	payload := resultPayload(t, result)
	memories := payload["memories"].([]any)
	skills := payload["skills"].([]any)
	require.Len(t, memories, 1)
	require.Equal(t, "promoted", memories[0].(map[string]any)["Title"])
	require.Len(t, skills, 1)
}

func TestHandleSearchMemories_RequiresQueryAndProject(t *testing.T) {
	h, _ := newTestHandlers(t)
	ctx := context.Background()

	result, err := h.HandleSearchMemories(ctx, makeRequest(map[string]any{"project_id": "p"}))
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestHandleSearchMemories_EphemeralBackendReturnsNotSupported(t *testing.T) {
	h, backend := newTestHandlers(t)
	ctx := context.Background()

	project, err := backend.UpsertProject(ctx, "/repo/d", "d")
	require.NoError(t, err)

	result, err := h.HandleSearchMemories(ctx, makeRequest(map[string]any{
		"project_id": project.ID,
		"query": "auth",
	}))
	require.NoError(t, err)
	require.True(t, result.IsError)

	payload := resultPayload(t, result)
	errObj := payload["error"].(map[string]any)
	require.Equal(t, "NOT_SUPPORTED_IN_MODE", errObj["code"])
}

func TestServerRegistration_FixedToolSet(t *testing.T) {
	names := AllToolNames()
	require.ElementsMatch(t, []string{
		"search_memories",
		"project_context",
		"recent_memories",
		"session_context",
		"save_lifeboat",
	}, names)
}
