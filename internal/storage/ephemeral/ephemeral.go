// Package ephemeral implements storage.Backend entirely in memory: no
// file is written, nothing survives a restart. Sessions are bounded by an
// LRU eviction policy (container/list, the same stdlib structure the
// teacher reaches for whenever a job is "just a container" rather than a
// domain type) so a long-running instance pointed at many projects can't
// grow without bound. FTS and vector search are not implemented here —
// they are backend-specific capabilities of the durable SQLite engine —
// so those methods return errors.NewNotSupportedInMode.
package ephemeral

import (
	"container/list"
	"context"
	"sort"
	"sync"

	"github.com/yologdev/yocore/internal/clock"
	"github.com/yologdev/yocore/internal/errors"
	"github.com/yologdev/yocore/internal/model"
	"github.com/yologdev/yocore/internal/storage"
)

const (
	defaultMaxSessions = 256
	defaultMaxMessagesPerSession = 50
)

// Backend is the in-memory storage.Backend implementation.
type Backend struct {
	mu sync.RWMutex

	maxSessions int
	maxMessagesPerSession int
	clk clock.Clock

	projects map[string]*model.Project // keyed by folder path
	projectsByID map[string]*model.Project
	sessions map[string]*sessionState // keyed by session ID
	sessionsByPath map[string]string // file path -> session ID
	lru *list.List // most-recently-used sessions, front = most recent
	lruElems map[string]*list.Element

	memories map[int64]*model.Memory
	memEmbed map[int64]model.MemoryEmbedding
	nextMemID int64

	skills map[int64]*model.Skill
	skillEmbed map[int64]model.SkillEmbedding
	nextSkillID int64

	markers map[int64]*model.Marker
	nextMarkerID int64

	contexts map[string]*model.SessionContext
}

type sessionState struct {
	session model.Session
	messages []model.Message
}

var _ storage.Backend = (*Backend)(nil)

// New returns an empty ephemeral backend. maxSessions <= 0 uses the
// default cap. maxMessagesPerSession <= 0 uses the
// config default.
func New(maxSessions, maxMessagesPerSession int, clk clock.Clock) *Backend {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	if maxMessagesPerSession <= 0 {
		maxMessagesPerSession = defaultMaxMessagesPerSession
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Backend{
		maxSessions: maxSessions,
		maxMessagesPerSession: maxMessagesPerSession,
		clk: clk,
		projects: make(map[string]*model.Project),
		projectsByID: make(map[string]*model.Project),
		sessions: make(map[string]*sessionState),
		sessionsByPath: make(map[string]string),
		lru: list.New(),
		lruElems: make(map[string]*list.Element),
		memories: make(map[int64]*model.Memory),
		memEmbed: make(map[int64]model.MemoryEmbedding),
		skills: make(map[int64]*model.Skill),
		skillEmbed: make(map[int64]model.SkillEmbedding),
		markers: make(map[int64]*model.Marker),
		contexts: make(map[string]*model.SessionContext),
	}
}

func (b *Backend) Mode() storage.Mode { return storage.ModeEphemeral }
func (b *Backend) Close() error { return nil }

func notSupported(op string) error {
	return errors.NewNotSupportedInMode(op, string(storage.ModeEphemeral))
}

// touchLRU marks sessionID as most-recently-used and evicts the
// least-recently-used session if the backend is now over maxSessions.
// Must be called with b.mu held for writing.
func (b *Backend) touchLRU(sessionID string) {
	if el, ok := b.lruElems[sessionID]; ok {
		b.lru.MoveToFront(el)
		return
	}
	el := b.lru.PushFront(sessionID)
	b.lruElems[sessionID] = el

	for b.lru.Len() > b.maxSessions {
		back := b.lru.Back()
		if back == nil {
			break
		}
		evictID := back.Value.(string)
		b.lru.Remove(back)
		delete(b.lruElems, evictID)
		b.evictSessionLocked(evictID)
	}
}

func (b *Backend) evictSessionLocked(sessionID string) {
	st, ok := b.sessions[sessionID]
	if !ok {
		return
	}
	delete(b.sessions, sessionID)
	delete(b.sessionsByPath, st.session.FilePath)
}

func sortedByName(projects map[string]*model.Project) []model.Project {
	out := make([]model.Project, 0, len(projects))
	for _, p := range projects {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (b *Backend) ListProjects(ctx context.Context) ([]model.Project, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return sortedByName(b.projects), nil
}
