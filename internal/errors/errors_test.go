package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("session-123")
	assert.Equal(t, ErrNotFound, err.Code)
	assert.Equal(t, 404, err.Status)
	assert.Equal(t, "session-123", err.Details["identifier"])
	assert.Contains(t, err.Error(), "session-123")
}

func TestIs(t *testing.T) {
	err := NewConflict("duplicate sequence_num")
	assert.True(t, Is(err, ErrConflict))
	assert.False(t, Is(err, ErrNotFound))
	assert.False(t, Is(nil, ErrConflict))
}

func TestNewNotSupportedInMode(t *testing.T) {
	err := NewNotSupportedInMode("fts_search_messages", "ephemeral")
	assert.Equal(t, ErrNotSupportedMode, err.Code)
	assert.Equal(t, 501, err.Status)
	assert.Equal(t, "ephemeral", err.Details["mode"])
}

func TestNewInternalNilError(t *testing.T) {
	err := NewInternal(nil)
	assert.Equal(t, "internal error", err.Message)
}
