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

const skillDiscoveryTimeout = 150 * time.Second

type extractedSkill struct {
	Name string `json:"name"`
	Description string `json:"description"`
	Steps []string `json:"steps"`
	Confidence float64 `json:"confidence"`
}

type skillDiscoveryResponse struct {
	Skills []extractedSkill `json:"skills"`
}

// NewSkillDiscoveryTask mirrors NewMemoryExtractionTask for the skill
// feature: same quality gates, but the dedup threshold differs only in
// the background-cleanup sweep, not at insertion time — skills have no
// insertion-time duplicate threshold the way memories do.
func NewSkillDiscoveryTask(projectID, sessionID string, messages []model.Message, resultCap int) Task {
	return Task{
		Feature: events.FeatureSkill,
		ProjectID: projectID,
		SessionID: sessionID,
		Timeout: skillDiscoveryTimeout,
		BuildPrompt: func() (string, error) {
			return buildSkillDiscoveryPrompt(messages), nil
		},
		Decode: func(stdout string) (any, error) {
			var resp skillDiscoveryResponse
			if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
				return nil, fmt.Errorf("decode skill discovery response: %w", err)
			}
			return resp, nil
		},
		Persist: func(ctx context.Context, backend storage.Backend, decoded any) error {
			resp := decoded.(skillDiscoveryResponse)
			return persistDiscoveredSkills(ctx, backend, projectID, sessionID, resp.Skills, resultCap)
		},
	}
}

func buildSkillDiscoveryPrompt(messages []model.Message) string {
	transcript := renderTranscript(messages)
	return "Identify reusable skills (repeatable procedures the user or assistant performed) from this " +
		"session transcript. Respond with JSON: {\"skills\":[{\"name\":string,\"description\":string," +
		"\"steps\":[string],\"confidence\":0..1}]}.\n\n" + transcript
}

func persistDiscoveredSkills(ctx context.Context, backend storage.Backend, projectID, sessionID string, items []extractedSkill, resultCap int) error {
	kept := 0
	limit := knowledge.ClampResultCount(len(items), resultCap)

	for _, item := range items {
		if kept >= limit {
			break
		}
		if !knowledge.PassesConfidenceGate(item.Confidence) {
			continue
		}

		s := &model.Skill{
			ProjectID: projectID,
			SessionID: sessionID,
			Name: item.Name,
			Description: item.Description,
			Steps: item.Steps,
			Confidence: item.Confidence,
		}
		if _, err := backend.InsertSkill(ctx, s); err != nil {
			return err
		}
		kept++
	}

	return backend.MarkSkillsExtracted(ctx, sessionID)
}
