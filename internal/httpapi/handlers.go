package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/yologdev/yocore/internal/clock"
	"github.com/yologdev/yocore/internal/embeddings"
	"github.com/yologdev/yocore/internal/errors"
	"github.com/yologdev/yocore/internal/events"
	"github.com/yologdev/yocore/internal/knowledge"
	"github.com/yologdev/yocore/internal/model"
	"github.com/yologdev/yocore/internal/storage"
)

// Handlers holds the dependencies every /health and /api/* route reads.
// All reads delegate to the storage reader connection, all mutations to
// the writer, — storage.Backend is the single seam that
// already enforces that split internally.
type Handlers struct {
	storage storage.Backend
	engine *embeddings.Engine
	watcher *events.Bus[events.WatcherEvent]
	ai *events.Bus[events.AiEvent]
	instance *clock.InstanceMetadata
	version string
	log *zap.Logger
}

// NewHandlers builds a Handlers instance.
func NewHandlers(
	backend storage.Backend,
	engine *embeddings.Engine,
	watcher *events.Bus[events.WatcherEvent],
	ai *events.Bus[events.AiEvent],
	instance *clock.InstanceMetadata,
	version string,
	log *zap.Logger,
) *Handlers {
	return &Handlers{
		storage: backend,
		engine: engine,
		watcher: watcher,
		ai: ai,
		instance: instance,
		version: version,
		log: log,
	}
}

// HandleHealth handles GET /health. Unauthenticated.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	var instanceName any
	if h.instance.InstanceName != "" {
		instanceName = h.instance.InstanceName
	}

	renderJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"version": h.version,
		"instance_uuid": h.instance.UUID,
		"instance_name": instanceName,
		"storage": string(h.storage.Mode()),
	})
}

// HandleListProjects handles GET /api/projects.
func (h *Handlers) HandleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.storage.ListProjects(r.Context())
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// HandleListMemories handles GET /api/projects/{id}/memories.
func (h *Handlers) HandleListMemories(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	q := r.URL.Query()

	filter := model.MemoryFilter{
		ProjectID: projectID,
		Limit: parseIntParam(r, "limit", 50),
		Offset: parseIntParam(r, "offset", 0),
	}
	if mt := q.Get("type"); mt != "" {
		filter.MemoryTypes = []model.MemoryType{model.MemoryType(mt)}
	}
	if tag := q.Get("tag"); tag != "" {
		filter.Tags = []string{tag}
	}
	if st := q.Get("state"); st != "" {
		state := model.MemoryState(st)
		filter.State = &state
	}

	memories, err := h.storage.ListMemories(r.Context(), filter)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"memories": memories})
}

// HandleSearchMemories handles GET /api/memories/search.
func (h *Handlers) HandleSearchMemories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	projectID := q.Get("project_id")
	query := q.Get("query")
	if projectID == "" || query == "" {
		renderError(w, errors.NewInvalidRequest("project_id and query are required"))
		return
	}

	filter := model.MemoryFilter{ProjectID: projectID}
	if tag := q.Get("tag"); tag != "" {
		filter.Tags = []string{tag}
	}
	limit := parseIntParam(r, "limit", 10)

	memories, err := knowledge.HybridSearchMemories(r.Context(), h.storage, h.engine, query, filter, limit)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"memories": memories})
}

// HandleListSkills handles GET /api/projects/{id}/skills.
func (h *Handlers) HandleListSkills(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")

	skills, err := h.storage.ListSkills(r.Context(), model.SkillFilter{
		ProjectID: projectID,
		Limit: parseIntParam(r, "limit", 50),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"skills": skills})
}

// HandleGetSessionContext handles GET /api/sessions/{id}/context.
func (h *Handlers) HandleGetSessionContext(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	sc, err := h.storage.GetSessionContext(r.Context(), sessionID)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, sc)
}

// saveLifeboatRequest is the PUT /api/sessions/{id}/context body.
type saveLifeboatRequest struct {
	ProjectID string `json:"project_id"`
	ActiveTask string `json:"active_task,omitempty"`
	RecentDecisions []string `json:"recent_decisions,omitempty"`
	OpenQuestions []string `json:"open_questions,omitempty"`
	ResumeContext string `json:"resume_context,omitempty"`
	Source string `json:"source,omitempty"`
}

// HandlePutSessionContext handles PUT /api/sessions/{id}/context.
func (h *Handlers) HandlePutSessionContext(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var body saveLifeboatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		renderError(w, errors.NewInvalidRequest("invalid JSON body"))
		return
	}
	if sessionID == "" || body.ProjectID == "" {
		renderError(w, errors.NewInvalidRequest("session id and project_id are required"))
		return
	}

	sc := &model.SessionContext{
		SessionID: sessionID,
		ProjectID: body.ProjectID,
		ActiveTask: body.ActiveTask,
		RecentDecisions: body.RecentDecisions,
		OpenQuestions: body.OpenQuestions,
		ResumeContext: body.ResumeContext,
		Source: body.Source,
	}
	if err := h.storage.UpsertSessionContext(r.Context(), sc); err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, sc)
}

func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
