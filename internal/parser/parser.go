// Package parser implements the session-parser capability:
// a registry mapping parser name → implementation, each turning a resume
// point plus a byte range of a JSONL file into a ParseResult. The
// registry-by-name pattern mirrors the toolRegistry map in internal/mcp.
package parser

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/yologdev/yocore/internal/model"
)

// ResumePoint is where a parse should continue from: the byte offset to
// start reading at and the last sequence number already stored.
type ResumePoint struct {
	ByteOffset int64
	MaxSequence int
}

// ParseStats counts forward-only parse outcomes.
type ParseStats struct {
	LinesRead int
	LinesSkipped int
	BytesRead int64
}

// ParseResult is the output of one parser invocation.
type ParseResult struct {
	Messages []model.Message
	Title string // best-effort session title, empty if undetermined
	AITool string
	Stats ParseStats
}

// Parser is the session-parser capability. Implementations must be
// forward-only and must not hold r open across suspension points: callers pass an io.Reader already positioned/limited to the byte
// range to parse.
type Parser interface {
	// Name is the registry key (e.g. "claude_code").
	Name() string
	// Parse reads r (positioned at resume.ByteOffset, limited to the bytes
	// that are new) and returns messages numbered starting at
	// resume.MaxSequence+1.
	Parse(r io.Reader, resume ResumePoint) (*ParseResult, error)
}

// Registry maps parser name to implementation, populated at startup.
type Registry struct {
	mu sync.RWMutex
	parsers map[string]Parser
}

// NewRegistry returns a registry with the Claude-Code and OpenClaw parsers
// pre-registered.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]Parser)}
	r.Register(NewClaudeCodeParser())
	r.Register(NewOpenClawParser())
	return r
}

// Register adds or replaces a parser under its Name().
func (r *Registry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[p.Name()] = p
}

// Get resolves a parser by name.
func (r *Registry) Get(name string) (Parser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parsers[name]
	if !ok {
		return nil, fmt.Errorf("unknown parser %q", name)
	}
	return p, nil
}

// truncateUnicode truncates s to at most maxRunes runes without splitting a
// multi-byte rune.
func truncateUnicode(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes])
}

// parseTimestamp is a best-effort RFC3339 parse; zero time on failure so a
// malformed timestamp never fails the whole line.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}
