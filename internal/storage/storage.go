// Package storage defines the single uniform session-store capability
// surface dispatched at startup to one of two implementations:
// internal/storage/durable (SQLite+WAL+FTS5) or internal/storage/ephemeral
// (in-memory, LRU-bounded). The interface is a two-variant sum type with
// no hidden dynamic dispatch — each concrete backend is selected once, at
// startup, by internal/service.
package storage

import (
	"context"

	"github.com/yologdev/yocore/internal/model"
)

// Mode names which backend implementation is active.
type Mode string

const (
	ModeDurable Mode = "db"
	ModeEphemeral Mode = "ephemeral"
)

// MessageSearchResult pairs a matched message with its FTS snippet.
type MessageSearchResult struct {
	Message model.Message
	Snippet string
}

// MemorySearchResult pairs a matched memory with its FTS snippet and
// engine rank (1-based), used by the knowledge package's RRF fusion.
type MemorySearchResult struct {
	Memory model.Memory
	Snippet string
	Rank int
}

// SkillSearchResult is the skill analog of MemorySearchResult.
type SkillSearchResult struct {
	Skill model.Skill
	Snippet string
	Rank int
}

// Backend is the storage capability surface. All methods are safe for
// concurrent use; the durable implementation serializes writers internally.
type Backend interface {
	Mode() Mode
	Close() error

	// Ingestion pipeline writes
	UpsertProject(ctx context.Context, folderPath, name string) (*model.Project, error)
	FindOrCreateSession(ctx context.Context, projectID, filePath, parserName string) (*model.Session, error)
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	ReplaceSessionMessages(ctx context.Context, sessionID string, messages []model.Message, fileSize int64) error
	AppendSessionMessages(ctx context.Context, sessionID string, messages []model.Message, fileSize int64) error
	GetSessionBytesWindow(ctx context.Context, sessionID string, byteOffset, byteLength int64) ([]byte, error)
	ListSessionMessages(ctx context.Context, sessionID string, limit, offset int) ([]model.Message, error)
	SetSessionTitle(ctx context.Context, sessionID, title string) error
	MarkMemoriesExtracted(ctx context.Context, sessionID string) error
	MarkSkillsExtracted(ctx context.Context, sessionID string) error

	// Memory
	InsertMemory(ctx context.Context, m *model.Memory) (int64, error)
	GetMemory(ctx context.Context, id int64) (*model.Memory, error)
	ListMemories(ctx context.Context, filter model.MemoryFilter) ([]model.Memory, error)
	UpdateMemoryState(ctx context.Context, id int64, state model.MemoryState) error
	SetMemoryValidated(ctx context.Context, id int64, validated bool) error
	TouchMemoryAccess(ctx context.Context, id int64) error
	PutMemoryEmbedding(ctx context.Context, memoryID int64, vector []float32) error
	GetMemoryEmbedding(ctx context.Context, memoryID int64) (*model.MemoryEmbedding, error)
	ListMemoryEmbeddings(ctx context.Context, projectID string) ([]model.MemoryEmbedding, error)
	ListMemoriesMissingEmbeddings(ctx context.Context, limit int) ([]model.Memory, error)
	FTSSearchMessages(ctx context.Context, query string, projectID string, limit, offset int) ([]MessageSearchResult, int, error)
	FTSSearchMemories(ctx context.Context, query string, filter model.MemoryFilter, limit int) ([]MemorySearchResult, error)

	// Skill
	InsertSkill(ctx context.Context, s *model.Skill) (int64, error)
	ListSkills(ctx context.Context, filter model.SkillFilter) ([]model.Skill, error)
	PutSkillEmbedding(ctx context.Context, skillID int64, vector []float32) error
	GetSkillEmbedding(ctx context.Context, skillID int64) (*model.SkillEmbedding, error)
	ListSkillEmbeddings(ctx context.Context, projectID string) ([]model.SkillEmbedding, error)
	ListSkillsMissingEmbeddings(ctx context.Context, limit int) ([]model.Skill, error)
	FTSSearchSkills(ctx context.Context, query string, projectID string, limit int) ([]SkillSearchResult, error)
	DeleteSkill(ctx context.Context, id int64) error
	SoftRemoveMemory(ctx context.Context, id int64) error

	// Markers
	InsertMarker(ctx context.Context, m *model.Marker) (int64, error)
	ListMarkers(ctx context.Context, sessionID string) ([]model.Marker, error)
	DeleteMarker(ctx context.Context, id int64) error

	// Lifeboat
	UpsertSessionContext(ctx context.Context, sc *model.SessionContext) error
	GetSessionContext(ctx context.Context, sessionID string) (*model.SessionContext, error)

	// Project listing, used by scheduler sweeps and service surfaces.
	ListProjects(ctx context.Context) ([]model.Project, error)
}
