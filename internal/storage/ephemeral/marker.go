package ephemeral

import (
	"context"
	"fmt"
	"sort"

	"github.com/yologdev/yocore/internal/errors"
	"github.com/yologdev/yocore/internal/model"
)

func (b *Backend) InsertMarker(ctx context.Context, m *model.Marker) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextMarkerID++
	m.ID = b.nextMarkerID
	stored := *m
	b.markers[m.ID] = &stored
	return m.ID, nil
}

func (b *Backend) ListMarkers(ctx context.Context, sessionID string) ([]model.Marker, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []model.Marker
	for _, m := range b.markers {
		if m.SessionID == sessionID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventIndex < out[j].EventIndex })
	return out, nil
}

func (b *Backend) DeleteMarker(ctx context.Context, id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.markers[id]; !ok {
		return errors.NewNotFound(fmt.Sprintf("%d", id))
	}
	delete(b.markers, id)
	return nil
}
