package aiqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yologdev/yocore/internal/events"
	"github.com/yologdev/yocore/internal/model"
	"github.com/yologdev/yocore/internal/storage"
)

const markerDetectionTimeout = 90 * time.Second

type detectedMarker struct {
	EventIndex int `json:"event_index"`
	MarkerType string `json:"marker_type"`
	Label string `json:"label"`
	Description string `json:"description"`
}

type markerDetectionResponse struct {
	Markers []detectedMarker `json:"markers"`
}

// NewMarkerDetectionTask scans a session's transcript for notable
// turning-point events (breakthroughs, ships, decisions, bugs, stuck
// points) and persists each as a Marker. Markers have no confidence field
// or extraction-result cap, so every returned marker is persisted as-is.
func NewMarkerDetectionTask(sessionID string, messages []model.Message) Task {
	return Task{
		Feature: events.FeatureMarkers,
		SessionID: sessionID,
		Timeout: markerDetectionTimeout,
		BuildPrompt: func() (string, error) {
			return buildMarkerDetectionPrompt(messages), nil
		},
		Decode: func(stdout string) (any, error) {
			var resp markerDetectionResponse
			if err := json.Unmarshal([]byte(stdout), &resp); err != nil {
				return nil, fmt.Errorf("decode marker detection response: %w", err)
			}
			return resp, nil
		},
		Persist: func(ctx context.Context, backend storage.Backend, decoded any) error {
			resp := decoded.(markerDetectionResponse)
			for _, item := range resp.Markers {
				marker := &model.Marker{
					SessionID: sessionID,
					EventIndex: item.EventIndex,
					MarkerType: model.MarkerType(item.MarkerType),
					Label: item.Label,
					Description: item.Description,
				}
				if _, err := backend.InsertMarker(ctx, marker); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func buildMarkerDetectionPrompt(messages []model.Message) string {
	transcript := renderTranscript(messages)
	return "Identify notable turning-point events in this session transcript: breakthroughs, shipped " +
		"work, decisions, bugs found, and points where the user got stuck. Respond with JSON: " +
		"{\"markers\":[{\"event_index\":int,\"marker_type\":\"breakthrough|ship|decision|bug|stuck\"," +
		"\"label\":string,\"description\":string}]}.\n\n" + transcript
}
