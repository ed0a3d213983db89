package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yologdev/yocore/internal/model"
)

func TestOpenClawParseBasic(t *testing.T) {
	input := `{"speaker":"human","text":"hello","created_at":"2026-01-01T00:00:00Z"}` + "\n" +
		`{"speaker":"ai","text":"hi back","model_name":"m1","tokens":3}` + "\n"

	p := NewOpenClawParser()
	result, err := p.Parse(strings.NewReader(input), ResumePoint{})
	require.NoError(t, err)
	require.Len(t, result.Messages, 2)
	assert.Equal(t, model.RoleHuman, result.Messages[0].Role)
	assert.Equal(t, model.RoleAssistant, result.Messages[1].Role)
	assert.Equal(t, 3, result.Messages[1].Tokens)
}

func TestOpenClawSkipsEmptyText(t *testing.T) {
	input := `{"speaker":"human","text":""}` + "\n"
	p := NewOpenClawParser()
	result, err := p.Parse(strings.NewReader(input), ResumePoint{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stats.LinesSkipped)
	assert.Empty(t, result.Messages)
}

func TestRegistryResolvesBothParsers(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("claude_code")
	require.NoError(t, err)
	_, err = r.Get("openclaw")
	require.NoError(t, err)
	_, err = r.Get("unknown")
	require.Error(t, err)
}
