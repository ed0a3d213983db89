package aiqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yologdev/yocore/internal/events"
	"github.com/yologdev/yocore/internal/knowledge"
	"github.com/yologdev/yocore/internal/model"
	"github.com/yologdev/yocore/internal/storage"
)

// memoryExtractionTimeout is the per-task subprocess deadline; memory extraction reads the
// whole truncated transcript so it gets the long end of the range.
const memoryExtractionTimeout = 150 * time.Second

type extractedMemory struct {
	Type string `json:"type"`
	Title string `json:"title"`
	Content string `json:"content"`
	Context string `json:"context"`
	Tags []string `json:"tags"`
	Confidence float64 `json:"confidence"`
}

type memoryExtractionResponse struct {
	Memories []extractedMemory `json:"memories"`
}

// NewMemoryExtractionTask builds the Task that runs a session's transcript
// through the extractor and persists the memories it returns, subject to
// the confidence gate, result-count cap, and insertion-time dedup.
func NewMemoryExtractionTask(projectID, sessionID string, messages []model.Message, resultCap int) Task {
	return Task{
		Feature: events.FeatureMemory,
		ProjectID: projectID,
		SessionID: sessionID,
		Timeout: memoryExtractionTimeout,
		BuildPrompt: func() (string, error) {
			return buildMemoryExtractionPrompt(messages), nil
		},
		Decode: func(stdout string) (any, error) {
			var resp memoryExtractionResponse
			if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
				return nil, fmt.Errorf("decode memory extraction response: %w", err)
			}
			return resp, nil
		},
		Persist: func(ctx context.Context, backend storage.Backend, decoded any) error {
			resp := decoded.(memoryExtractionResponse)
			return persistExtractedMemories(ctx, backend, projectID, sessionID, resp.Memories, resultCap)
		},
	}
}

func buildMemoryExtractionPrompt(messages []model.Message) string {
	transcript := renderTranscript(messages)
	return "Extract durable memories (decisions, facts, preferences, context, tasks) from this session " +
		"transcript. Respond with JSON: {\"memories\":[{\"type\":\"decision|fact|preference|context|task\"," +
		"\"title\":string,\"content\":string,\"context\":string,\"tags\":[string],\"confidence\":0..1}]}.\n\n" +
		transcript
}

func persistExtractedMemories(ctx context.Context, backend storage.Backend, projectID, sessionID string, items []extractedMemory, resultCap int) error {
	kept := 0
	limit := knowledge.ClampResultCount(len(items), resultCap)

	for _, item := range items {
		if kept >= limit {
			break
		}
		if !knowledge.PassesConfidenceGate(item.Confidence) {
			continue
		}

		dup, err := isDuplicateMemory(ctx, backend, projectID, item.Title, item.Content)
		if err != nil {
			return err
		}
		if dup {
			continue
		}

		m := &model.Memory{
			ProjectID: projectID,
			SessionID: sessionID,
			MemoryType: model.MemoryType(item.Type),
			Title: item.Title,
			Content: item.Content,
			Context: item.Context,
			Tags: item.Tags,
			Confidence: item.Confidence,
			State: model.StateNew,
		}
		if _, err := backend.InsertMemory(ctx, m); err != nil {
			return err
		}
		kept++
	}

	return backend.MarkMemoriesExtracted(ctx, sessionID)
}
