// Package service is the composition root: it assembles every component
// in dependency order (clock/IDs -> config -> event bus -> storage ->
// parser registry -> embedding engine -> ingestion pipeline -> AI task
// queue -> knowledge subsystem -> scheduler -> service surfaces) and owns
// their combined start/stop lifecycle.
package service

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/yologdev/yocore/internal/aiqueue"
	"github.com/yologdev/yocore/internal/clock"
	"github.com/yologdev/yocore/internal/config"
	"github.com/yologdev/yocore/internal/embeddings"
	"github.com/yologdev/yocore/internal/events"
	"github.com/yologdev/yocore/internal/httpapi"
	"github.com/yologdev/yocore/internal/ingest"
	"github.com/yologdev/yocore/internal/knowledge"
	"github.com/yologdev/yocore/internal/mcp"
	"github.com/yologdev/yocore/internal/model"
	"github.com/yologdev/yocore/internal/parser"
	"github.com/yologdev/yocore/internal/scheduler"
	"github.com/yologdev/yocore/internal/storage"
	"github.com/yologdev/yocore/internal/storage/durable"
	"github.com/yologdev/yocore/internal/storage/ephemeral"
)

// titleGenerationMinMessages gates title generation so the AI CLI is never
// asked to summarize a session that's barely started.
const titleGenerationMinMessages = 4

// markerDetectionMinMessages is the equivalent floor for marker detection,
// which the quality gates don't cover (those apply to memory
// extraction only) but which still shouldn't fire on a near-empty session.
const markerDetectionMinMessages = 8

// Service owns every long-lived component and their start/stop lifecycle.
type Service struct {
	cfg *config.Config
	log *zap.Logger

	clock clock.Clock
	instance *clock.InstanceMetadata

	backend storage.Backend
	engine *embeddings.Engine

	watcherBus *events.Bus[events.WatcherEvent]
	aiBus *events.Bus[events.AiEvent]

	parsers *parser.Registry
	pipeline *ingest.Pipeline
	watcher *ingest.Watcher

	queue *aiqueue.Queue
	sched *scheduler.Scheduler

	httpServer *http.Server
}

// New assembles the full component graph without starting any
// background work.
func New(cfg *config.Config, log *zap.Logger, version string) (*Service, error) {
	s := &Service{
		cfg: cfg,
		log: log,
		clock: clock.Real{},
		watcherBus: events.New[events.WatcherEvent](),
		aiBus: events.New[events.AiEvent](),
		parsers: parser.NewRegistry(),
		engine: embeddings.Get(),
	}

	instance, err := clock.LoadOrCreateInstanceMetadata(cfg.DataDir, cfg.Server.InstanceName, s.clock)
	if err != nil {
		return nil, fmt.Errorf("load instance metadata: %w", err)
	}
	s.instance = instance

	backend, err := openBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("open storage backend: %w", err)
	}
	s.backend = backend

	s.pipeline = &ingest.Pipeline{
		Storage: s.backend,
		Parsers: s.parsers,
		WatcherBus: s.watcherBus,
		Clock: s.clock,
		Watches: cfg.Watch,
		EnqueueAI: s.enqueueAI,
	}

	watcher, err := ingest.NewWatcher(cfg.Watch, s.pipeline, ingest.DefaultDebounceWindow, log)
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	s.watcher = watcher

	s.queue = aiqueue.New(cfg.AI, s.backend, s.aiBus, s.clock, log)
	s.sched = scheduler.New(cfg.Scheduler, s.backend, s.aiBus, s.clock, log, cfg.AI.Enabled)

	s.httpServer = httpapi.NewServer(s.backend, s.engine, s.watcherBus, s.aiBus, s.instance, cfg, version, log)

	return s, nil
}

// openBackend dispatches to the durable or ephemeral storage.Backend
// implementation. The dispatch happens exactly once, here.
func openBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.Storage {
	case config.StorageEphemeral:
		return ephemeral.New(cfg.Ephemeral.MaxSessions, cfg.Ephemeral.MaxMessagesPerSession, clock.Real{}), nil
	default:
		return durable.Open(cfg.DataDir)
	}
}

// Instance returns the process's persistent identity.
func (s *Service) Instance() *clock.InstanceMetadata { return s.instance }

// Backend returns the active storage backend.
func (s *Service) Backend() storage.Backend { return s.backend }

// Engine returns the shared embedding engine.
func (s *Service) Engine() *embeddings.Engine { return s.engine }

// HTTPServer returns the HTTP+SSE service surface, unstarted.
func (s *Service) HTTPServer() *http.Server { return s.httpServer }

// WatcherBus returns the filesystem-watcher event bus.
func (s *Service) WatcherBus() *events.Bus[events.WatcherEvent] { return s.watcherBus }

// AIBus returns the AI task/scheduler event bus.
func (s *Service) AIBus() *events.Bus[events.AiEvent] { return s.aiBus }

// RunMCP starts every background component and then blocks serving the
// stdio MCP tool surface until the client disconnects.
func (s *Service) RunMCP(ctx context.Context, version string) error {
	s.StartBackground(ctx)
	defer s.StopBackground()
	return mcp.Run(s.backend, s.engine, version, s.log)
}

// RunHTTP starts every background component and then blocks serving the
// HTTP+SSE surface until a shutdown signal arrives (httpapi.Run handles
// SIGINT/SIGTERM and the graceful-shutdown grace window itself).
func (s *Service) RunHTTP(ctx context.Context) error {
	s.StartBackground(ctx)
	defer s.StopBackground()
	return httpapi.Run(s.httpServer)
}

// StartBackground launches the watcher and scheduler. Non-blocking.
func (s *Service) StartBackground(ctx context.Context) {
	if err := s.watcher.Start(ctx); err != nil {
		s.log.Error("service: failed to start watcher", zap.Error(err))
	}
	s.sched.Start(ctx)
}

// StopBackground halts the watcher and scheduler and closes the backend.
// Safe to call once after StartBackground.
func (s *Service) StopBackground() {
	s.watcher.Stop()
	s.sched.Stop()
	if err := s.backend.Close(); err != nil {
		s.log.Warn("service: error closing storage backend", zap.Error(err))
	}
}

// enqueueAI fans out AI tasks after a successful parse, gated by feature
// flag, backend mode, and the knowledge subsystem's extraction quality
// gates. Tasks run fire-and-forget on the bounded queue so a slow AI CLI
// never stalls the ingestion pipeline's per-file dispatch.
func (s *Service) enqueueAI(ctx context.Context, projectID, sessionID string, messageCount int) {
	if !s.cfg.AI.Enabled() {
		return
	}

	session, err := s.backend.GetSession(ctx, sessionID)
	if err != nil {
		s.log.Warn("service: enqueueAI: get session", zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	if s.cfg.AI.TitleGeneration && session.Title == "" && messageCount >= titleGenerationMinMessages {
		s.submit(ctx, func(messages []model.Message) aiqueue.Task {
			return aiqueue.NewTitleGenerationTask(sessionID, messages)
		}, sessionID)
	}

	// Under the ephemeral backend only title generation may be enqueued;
	// every other feature is durable-only.
	if s.backend.Mode() != storage.ModeDurable {
		return
	}

	if s.cfg.AI.MemoryExtraction && session.MemoriesExtractedAt == nil && knowledge.EligibleForExtraction(messageCount) {
		s.submit(ctx, func(messages []model.Message) aiqueue.Task {
			return aiqueue.NewMemoryExtractionTask(projectID, sessionID, messages, knowledge.MaxResultsPerExtraction)
		}, sessionID)
	}

	if s.cfg.AI.SkillsDiscovery && session.SkillsExtractedAt == nil && knowledge.EligibleForExtraction(messageCount) {
		s.submit(ctx, func(messages []model.Message) aiqueue.Task {
			return aiqueue.NewSkillDiscoveryTask(projectID, sessionID, messages, knowledge.MaxResultsPerExtraction)
		}, sessionID)
	}

	if s.cfg.AI.MarkerDetection && messageCount >= markerDetectionMinMessages {
		s.submit(ctx, func(messages []model.Message) aiqueue.Task {
			return aiqueue.NewMarkerDetectionTask(sessionID, messages)
		}, sessionID)
	}
}

// submit fetches the session's full message history and runs the task
// built from it on a background goroutine, so the caller (the ingestion
// pipeline's synchronous per-file dispatch) never blocks on the AI queue's
// semaphore or the subprocess call it gates.
func (s *Service) submit(ctx context.Context, build func([]model.Message) aiqueue.Task, sessionID string) {
	messages, err := s.backend.ListSessionMessages(ctx, sessionID, -1, 0)
	if err != nil {
		s.log.Warn("service: enqueueAI: list messages", zap.String("session_id", sessionID), zap.Error(err))
		return
	}
	task := build(messages)
	go func() {
		if err := s.queue.Submit(ctx, task); err != nil {
			s.log.Warn("service: ai task failed", zap.String("feature", string(task.Feature)), zap.Error(err))
		}
	}()
}
