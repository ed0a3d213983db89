package aiqueue

import (
	"context"

	"github.com/yologdev/yocore/internal/knowledge"
	"github.com/yologdev/yocore/internal/model"
	"github.com/yologdev/yocore/internal/storage"
)

// isDuplicateMemory reports whether candidate is within the insertion-time
// similarity threshold of any non-removed memory already stored for
// projectID.
func isDuplicateMemory(ctx context.Context, backend storage.Backend, projectID, title, content string) (bool, error) {
	existing, err := backend.ListMemories(ctx, model.MemoryFilter{ProjectID: projectID, Limit: 0})
	if err != nil {
		return false, err
	}

	candidate := knowledge.NewSimilarityInput(title, content)
	for _, m := range existing {
		if m.State == model.StateRemoved {
			continue
		}
		other := knowledge.NewSimilarityInput(m.Title, m.Content)
		if knowledge.Similarity(candidate, other) >= knowledge.InsertionDuplicateThreshold {
			return true, nil
		}
	}
	return false, nil
}
