package clock

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrozenAdvance(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFrozen(base)
	assert.Equal(t, base, f.Now())
	f.Advance(90 * 24 * time.Hour)
	assert.Equal(t, base.Add(90*24*time.Hour), f.Now())
}

func TestNewIDIsUnique(t *testing.T) {
	a, b := NewID(), NewID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}

func TestLoadOrCreateInstanceMetadataStable(t *testing.T) {
	dir := t.TempDir()
	clk := NewFrozen(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	first, err := LoadOrCreateInstanceMetadata(dir, "laptop", clk)
	require.NoError(t, err)
	assert.NotEmpty(t, first.UUID)

	second, err := LoadOrCreateInstanceMetadata(dir, "different-name-ignored", clk)
	require.NoError(t, err)
	assert.Equal(t, first.UUID, second.UUID)
	assert.FileExists(t, filepath.Join(dir, "instance.json"))
}
