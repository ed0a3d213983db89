package ephemeral

import (
	"context"

	"github.com/yologdev/yocore/internal/errors"
	"github.com/yologdev/yocore/internal/model"
)

func (b *Backend) UpsertSessionContext(ctx context.Context, sc *model.SessionContext) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clk.Now()
	if existing, ok := b.contexts[sc.SessionID]; ok {
		sc.CreatedAt = existing.CreatedAt
	} else {
		sc.CreatedAt = now
	}
	sc.UpdatedAt = now
	stored := *sc
	b.contexts[sc.SessionID] = &stored
	return nil
}

func (b *Backend) GetSessionContext(ctx context.Context, sessionID string) (*model.SessionContext, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sc, ok := b.contexts[sessionID]
	if !ok {
		return nil, errors.NewNotFound(sessionID)
	}
	copy := *sc
	return &copy, nil
}
