package aiqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yologdev/yocore/internal/events"
	"github.com/yologdev/yocore/internal/model"
	"github.com/yologdev/yocore/internal/storage"
)

// titleGenerationTimeout is the shortest of the feature timeouts: a short
// transcript summary needs far less headroom than a full extraction pass.
const titleGenerationTimeout = 90 * time.Second

type titleResponse struct {
	Title string `json:"title"`
}

// NewTitleGenerationTask produces a short human-readable title for a
// session from its opening messages.
func NewTitleGenerationTask(sessionID string, messages []model.Message) Task {
	return Task{
		Feature: events.FeatureTitle,
		SessionID: sessionID,
		Timeout: titleGenerationTimeout,
		BuildPrompt: func() (string, error) {
			return buildTitlePrompt(messages), nil
		},
		Decode: func(stdout string) (any, error) {
			var resp titleResponse
			if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
				return nil, fmt.Errorf("decode title response: %w", err)
			}
			if strings.TrimSpace(resp.Title) == "" {
				return nil, fmt.Errorf("empty title")
			}
			return resp, nil
		},
		Persist: func(ctx context.Context, backend storage.Backend, decoded any) error {
			resp := decoded.(titleResponse)
			return backend.SetSessionTitle(ctx, sessionID, strings.TrimSpace(resp.Title))
		},
	}
}

func buildTitlePrompt(messages []model.Message) string {
	transcript := renderTranscript(messages)
	return "Generate a short (3-8 word) title summarizing this coding session. Respond with JSON: " +
		"{\"title\":string}.\n\n" + transcript
}
