// Package clock provides the monotonic time source, UUID generation, and
// persistent instance identity shared by every Yocore component, owning a
// single stable identity for the process's lifetime.
package clock

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Clock is the monotonic time source seam. Production code uses Real;
// tests substitute a Frozen clock to make time-dependent
// behavior (ranking sweeps, dedup cleanup, lifeboat timestamps) deterministic.
type Clock interface {
	Now() time.Time
}

// Real returns wall-clock time via time.Now.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Frozen returns a fixed instant every call, and can be advanced explicitly
// by tests driving time-dependent sweeps.
type Frozen struct {
	mu sync.Mutex
	t time.Time
}

// NewFrozen returns a Frozen clock initialized to t.
func NewFrozen(t time.Time) *Frozen {
	return &Frozen{t: t}
}

func (f *Frozen) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Advance moves the frozen clock forward by d.
func (f *Frozen) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

// NewID returns a new random UUID as a string. Every UUID-keyed entity
// (Project, Session, and the instance UUID) uses this; memories, skills,
// markers and their embeddings use integer IDs instead.
func NewID() string {
	return uuid.NewString()
}

// InstanceMetadata is a singleton record holding a stable UUID and optional
// display name, persisted once as baseDir/instance.json and reused across
// restarts.
type InstanceMetadata struct {
	UUID string `json:"uuid"`
	InstanceName string `json:"instance_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LoadOrCreateInstanceMetadata reads baseDir/instance.json, creating it with
// a freshly generated UUID if absent. The UUID is then stable across restarts,
// matching the InstanceMetadata lifecycle ("Created once on first
// run; UUID stable across restarts").
func LoadOrCreateInstanceMetadata(baseDir, instanceName string, clk Clock) (*InstanceMetadata, error) {
	path := filepath.Join(baseDir, "instance.json")

	if data, err := os.ReadFile(path); err == nil {
		var meta InstanceMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil, err
		}
		return &meta, nil
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	meta := &InstanceMetadata{
		UUID: NewID(),
		InstanceName: instanceName,
		CreatedAt: clk.Now().UTC(),
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(meta, "", " ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return nil, err
	}
	return meta, nil
}
