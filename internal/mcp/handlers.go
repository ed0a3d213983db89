package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/yologdev/yocore/internal/embeddings"
	"github.com/yologdev/yocore/internal/errors"
	"github.com/yologdev/yocore/internal/knowledge"
	"github.com/yologdev/yocore/internal/model"
	"github.com/yologdev/yocore/internal/storage"
)

const (
	defaultSearchLimit = 10
	defaultRecentLimit = 10
	defaultContextLimit = 20
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	storage storage.Backend
	engine *embeddings.Engine
	log *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(backend storage.Backend, engine *embeddings.Engine, log *zap.Logger) *Handlers {
	return &Handlers{storage: backend, engine: engine, log: log}
}

// SearchMemoriesRequest represents the arguments for search_memories.
type SearchMemoriesRequest struct {
	ProjectID string `json:"project_id"`
	Query string `json:"query"`
	MemoryTypes []string `json:"memory_types,omitempty"`
	Tags []string `json:"tags,omitempty"`
	Limit int `json:"limit,omitempty"`
}

// ProjectContextRequest represents the arguments for project_context.
type ProjectContextRequest struct {
	ProjectID string `json:"project_id"`
	MemoryLimit int `json:"memory_limit,omitempty"`
	SkillLimit int `json:"skill_limit,omitempty"`
}

// RecentMemoriesRequest represents the arguments for recent_memories.
type RecentMemoriesRequest struct {
	ProjectID string `json:"project_id"`
	Limit int `json:"limit,omitempty"`
}

// SessionContextRequest represents the arguments for session_context.
type SessionContextRequest struct {
	SessionID string `json:"session_id"`
}

// SaveLifeboatRequest represents the arguments for save_lifeboat.
type SaveLifeboatRequest struct {
	SessionID string `json:"session_id"`
	ProjectID string `json:"project_id"`
	ActiveTask string `json:"active_task,omitempty"`
	RecentDecisions []string `json:"recent_decisions,omitempty"`
	OpenQuestions []string `json:"open_questions,omitempty"`
	ResumeContext string `json:"resume_context,omitempty"`
	Source string `json:"source,omitempty"`
}

// HandleSearchMemories handles the search_memories tool call.
func (h *Handlers) HandleSearchMemories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchMemoriesRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ProjectID == "" || input.Query == "" {
		return errorResult(errors.NewInvalidRequest("project_id and query are required")), nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	filter := model.MemoryFilter{
		ProjectID: input.ProjectID,
		MemoryTypes: toMemoryTypes(input.MemoryTypes),
		Tags: input.Tags,
	}

	memories, err := knowledge.HybridSearchMemories(ctx, h.storage, h.engine, input.Query, filter, limit)
	if err != nil {
		return errorResult(err), nil
	}
	for _, m := range memories {
		_ = h.storage.TouchMemoryAccess(ctx, m.ID)
	}

	return successResult(map[string]any{"memories": memories})
}

// HandleProjectContext handles the project_context tool call.
func (h *Handlers) HandleProjectContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectContextRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ProjectID == "" {
		return errorResult(errors.NewInvalidRequest("project_id is required")), nil
	}

	memoryLimit := input.MemoryLimit
	if memoryLimit <= 0 {
		memoryLimit = defaultContextLimit
	}
	skillLimit := input.SkillLimit
	if skillLimit <= 0 {
		skillLimit = defaultContextLimit
	}

	high := model.StateHigh
	memories, err := h.storage.ListMemories(ctx, model.MemoryFilter{ProjectID: input.ProjectID, State: &high, Limit: memoryLimit})
	if err != nil {
		return errorResult(err), nil
	}
	skills, err := h.storage.ListSkills(ctx, model.SkillFilter{ProjectID: input.ProjectID, Limit: skillLimit})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{"memories": memories, "skills": skills})
}

// HandleRecentMemories handles the recent_memories tool call.
func (h *Handlers) HandleRecentMemories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecentMemoriesRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ProjectID == "" {
		return errorResult(errors.NewInvalidRequest("project_id is required")), nil
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultRecentLimit
	}

	memories, err := h.storage.ListMemories(ctx, model.MemoryFilter{ProjectID: input.ProjectID, Limit: 0})
	if err != nil {
		return errorResult(err), nil
	}

	out := make([]model.Memory, 0, limit)
	for _, m := range memories {
		if m.State == model.StateRemoved {
			continue
		}
		out = append(out, m)
		if len(out) >= limit {
			break
		}
	}

	return successResult(map[string]any{"memories": out})
}

// HandleSessionContext handles the session_context tool call.
func (h *Handlers) HandleSessionContext(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionContextRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.SessionID == "" {
		return errorResult(errors.NewInvalidRequest("session_id is required")), nil
	}

	sc, err := h.storage.GetSessionContext(ctx, input.SessionID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(sc)
}

// HandleSaveLifeboat handles the save_lifeboat tool call.
func (h *Handlers) HandleSaveLifeboat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveLifeboatRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.SessionID == "" || input.ProjectID == "" {
		return errorResult(errors.NewInvalidRequest("session_id and project_id are required")), nil
	}

	sc := &model.SessionContext{
		SessionID: input.SessionID,
		ProjectID: input.ProjectID,
		ActiveTask: input.ActiveTask,
		RecentDecisions: input.RecentDecisions,
		OpenQuestions: input.OpenQuestions,
		ResumeContext: input.ResumeContext,
		Source: input.Source,
	}
	if err := h.storage.UpsertSessionContext(ctx, sc); err != nil {
		return errorResult(err), nil
	}

	return successResult(sc)
}

func toMemoryTypes(names []string) []model.MemoryType {
	if len(names) == 0 {
		return nil
	}
	out := make([]model.MemoryType, len(names))
	for i, n := range names {
		out[i] = model.MemoryType(n)
	}
	return out
}

// errorResult creates an MCP error result from any error. Internal error
// details are never exposed to the client.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if yerr, ok := err.(*errors.YocoreError); ok {
		errorObj := map[string]any{
			"code": yerr.Code,
			"message": yerr.Message,
			"status": yerr.Status,
		}
		if yerr.Code != errors.ErrInternal && yerr.Details != nil {
			errorObj["details"] = yerr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code": "INTERNAL",
				"message": "an internal error occurred",
				"status": 500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
