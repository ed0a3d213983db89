package ephemeral

import (
	"context"
	"fmt"
	"sort"

	"github.com/yologdev/yocore/internal/errors"
	"github.com/yologdev/yocore/internal/model"
	"github.com/yologdev/yocore/internal/storage"
)

func (b *Backend) InsertMemory(ctx context.Context, m *model.Memory) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if m.ExtractedAt.IsZero() {
		m.ExtractedAt = b.clk.Now()
	}
	if m.State == "" {
		m.State = model.StateNew
	}
	b.nextMemID++
	m.ID = b.nextMemID
	stored := *m
	b.memories[m.ID] = &stored
	return m.ID, nil
}

func (b *Backend) GetMemory(ctx context.Context, id int64) (*model.Memory, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m, ok := b.memories[id]
	if !ok {
		return nil, errors.NewNotFound(fmt.Sprintf("%d", id))
	}
	copy := *m
	return &copy, nil
}

func (b *Backend) ListMemories(ctx context.Context, filter model.MemoryFilter) ([]model.Memory, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []model.Memory
	for _, m := range b.memories {
		if m.ProjectID != filter.ProjectID {
			continue
		}
		if filter.State != nil {
			if m.State != *filter.State {
				continue
			}
		} else if m.State == model.StateRemoved {
			// Removed memories are excluded from every retrieval
			// surface unless a caller explicitly asks for that state.
			continue
		}
		if len(filter.MemoryTypes) > 0 && !containsType(filter.MemoryTypes, m.MemoryType) {
			continue
		}
		if !matchesTags(m.Tags, filter.Tags) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExtractedAt.After(out[j].ExtractedAt) })
	return paginate(out, filter.Limit, filter.Offset), nil
}

func containsType(types []model.MemoryType, t model.MemoryType) bool {
	for _, want := range types {
		if want == t {
			return true
		}
	}
	return false
}

func matchesTags(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[t] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

func paginate(out []model.Memory, limit, offset int) []model.Memory {
	if offset >= len(out) {
		return nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (b *Backend) UpdateMemoryState(ctx context.Context, id int64, state model.MemoryState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.memories[id]
	if !ok {
		return errors.NewNotFound(fmt.Sprintf("%d", id))
	}
	m.State = state
	return nil
}

func (b *Backend) SetMemoryValidated(ctx context.Context, id int64, validated bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.memories[id]
	if !ok {
		return errors.NewNotFound(fmt.Sprintf("%d", id))
	}
	m.IsValidated = validated
	return nil
}

func (b *Backend) TouchMemoryAccess(ctx context.Context, id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.memories[id]
	if !ok {
		return errors.NewNotFound(fmt.Sprintf("%d", id))
	}
	m.AccessCount++
	now := b.clk.Now()
	m.LastAccessAt = &now
	return nil
}

func (b *Backend) SoftRemoveMemory(ctx context.Context, id int64) error {
	return b.UpdateMemoryState(ctx, id, model.StateRemoved)
}

func (b *Backend) PutMemoryEmbedding(ctx context.Context, memoryID int64, vector []float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.memories[memoryID]; !ok {
		return errors.NewNotFound(fmt.Sprintf("%d", memoryID))
	}
	b.memEmbed[memoryID] = model.MemoryEmbedding{MemoryID: memoryID, Vector: append([]float32(nil), vector...)}
	return nil
}

func (b *Backend) GetMemoryEmbedding(ctx context.Context, memoryID int64) (*model.MemoryEmbedding, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.memEmbed[memoryID]
	if !ok {
		return nil, errors.NewNotFound(fmt.Sprintf("%d", memoryID))
	}
	return &e, nil
}

func (b *Backend) ListMemoryEmbeddings(ctx context.Context, projectID string) ([]model.MemoryEmbedding, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []model.MemoryEmbedding
	for id, e := range b.memEmbed {
		m, ok := b.memories[id]
		if !ok || m.ProjectID != projectID || m.State == model.StateRemoved {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (b *Backend) ListMemoriesMissingEmbeddings(ctx context.Context, limit int) ([]model.Memory, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []model.Memory
	for id, m := range b.memories {
		if _, ok := b.memEmbed[id]; ok {
			continue
		}
		out = append(out, *m)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (b *Backend) FTSSearchMessages(ctx context.Context, query, projectID string, limit, offset int) ([]storage.MessageSearchResult, int, error) {
	return nil, 0, notSupported("FTSSearchMessages")
}

func (b *Backend) FTSSearchMemories(ctx context.Context, query string, filter model.MemoryFilter, limit int) ([]storage.MemorySearchResult, error) {
	return nil, notSupported("FTSSearchMemories")
}
