// Package model defines the core entities: Project, Session, Message,
// Memory, Skill, Marker, SessionContext, and InstanceMetadata.
package model

import "time"

// Role is the speaker of a Message.
type Role string

const (
	RoleHuman Role = "human"
	RoleAssistant Role = "assistant"
	RoleTool Role = "tool"
)

// MemoryType classifies a Memory.
type MemoryType string

const (
	MemoryDecision MemoryType = "decision"
	MemoryFact MemoryType = "fact"
	MemoryPreference MemoryType = "preference"
	MemoryContext MemoryType = "context"
	MemoryTask MemoryType = "task"
)

// MemoryState is the ranking state machine's state.
type MemoryState string

const (
	StateNew MemoryState = "new"
	StateLow MemoryState = "low"
	StateHigh MemoryState = "high"
	StateRemoved MemoryState = "removed"
)

// MarkerType classifies a Marker.
type MarkerType string

const (
	MarkerBreakthrough MarkerType = "breakthrough"
	MarkerShip MarkerType = "ship"
	MarkerDecision MarkerType = "decision"
	MarkerBug MarkerType = "bug"
	MarkerStuck MarkerType = "stuck"
)

// Project is the top-level grouping of sessions rooted at a folder path.
type Project struct {
	ID string
	Name string
	FolderPath string // unique
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session tracks one watched JSONL transcript file.
type Session struct {
	ID string
	ProjectID string
	FilePath string // unique
	Title string
	AITool string
	MessageCount int
	FileSize int64
	MaxSequence int
	MemoriesExtractedAt *time.Time
	SkillsExtractedAt *time.Time
	CreatedAt time.Time
	IndexedAt time.Time
}

// Message is one append-only transcript entry.
type Message struct {
	SessionID string
	SequenceNum int
	Role Role
	ContentPreview string
	SearchContent string
	HasCode bool
	HasError bool
	ToolName string
	ByteOffset int64
	ByteLength int64
	Tokens int
	Model string
	Timestamp time.Time
}

// Memory is one extracted knowledge fact ranked and surfaced through search.
type Memory struct {
	ID int64
	ProjectID string
	SessionID string
	MemoryType MemoryType
	Title string
	Content string
	Context string
	Tags []string
	Confidence float64
	IsValidated bool
	State MemoryState
	AccessCount int
	ExtractedAt time.Time
	LastAccessAt *time.Time
}

// MemoryEmbedding is the 384-dim normalized vector for a Memory.
type MemoryEmbedding struct {
	MemoryID int64
	Vector []float32
}

// Skill is one extracted reusable procedure.
type Skill struct {
	ID int64
	ProjectID string
	SessionID string
	Name string
	Description string
	Steps []string
	Confidence float64
	ExtractedAt time.Time
}

// SkillEmbedding is the 384-dim normalized vector for a Skill.
type SkillEmbedding struct {
	SkillID int64
	Vector []float32
}

// Marker flags a notable event in a session's timeline.
type Marker struct {
	ID int64
	SessionID string
	EventIndex int
	MarkerType MarkerType
	Label string
	Description string
}

// SessionContext is the "lifeboat" snapshot captured before an AI client
// compresses its prompt history, consumed on resume.
type SessionContext struct {
	SessionID string // PK
	ProjectID string
	ActiveTask string
	RecentDecisions []string
	OpenQuestions []string
	ResumeContext string
	Source string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// InstanceMetadata mirrors clock.InstanceMetadata. Neither storage backend
// persists it; the instance identity lives in clock's instance.json file.
type InstanceMetadata struct {
	UUID string
	InstanceName string
	CreatedAt time.Time
}
