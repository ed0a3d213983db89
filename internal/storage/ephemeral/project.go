package ephemeral

import (
	"context"

	"github.com/yologdev/yocore/internal/clock"
	"github.com/yologdev/yocore/internal/errors"
	"github.com/yologdev/yocore/internal/model"
)

func (b *Backend) UpsertProject(ctx context.Context, folderPath, name string) (*model.Project, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p, ok := b.projects[folderPath]; ok {
		return p, nil
	}

	now := b.clk.Now()
	p := &model.Project{ID: clock.NewID(), Name: name, FolderPath: folderPath, CreatedAt: now, UpdatedAt: now}
	b.projects[folderPath] = p
	b.projectsByID[p.ID] = p
	return p, nil
}

func (b *Backend) FindOrCreateSession(ctx context.Context, projectID, filePath, parserName string) (*model.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sid, ok := b.sessionsByPath[filePath]; ok {
		b.touchLRU(sid)
		s := b.sessions[sid].session
		return &s, nil
	}

	now := b.clk.Now()
	id := clock.NewID()
	st := &sessionState{session: model.Session{
		ID: id, ProjectID: projectID, FilePath: filePath, AITool: parserName,
		CreatedAt: now, IndexedAt: now,
	}}
	b.sessions[id] = st
	b.sessionsByPath[filePath] = id
	b.touchLRU(id)

	s := st.session
	return &s, nil
}

func (b *Backend) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.sessions[sessionID]
	if !ok {
		return nil, errors.NewNotFound(sessionID)
	}
	s := st.session
	return &s, nil
}

func (b *Backend) SetSessionTitle(ctx context.Context, sessionID, title string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.sessions[sessionID]
	if !ok {
		return errors.NewNotFound(sessionID)
	}
	st.session.Title = title
	return nil
}

func (b *Backend) MarkMemoriesExtracted(ctx context.Context, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.sessions[sessionID]
	if !ok {
		return errors.NewNotFound(sessionID)
	}
	now := b.clk.Now()
	st.session.MemoriesExtractedAt = &now
	return nil
}

func (b *Backend) MarkSkillsExtracted(ctx context.Context, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.sessions[sessionID]
	if !ok {
		return errors.NewNotFound(sessionID)
	}
	now := b.clk.Now()
	st.session.SkillsExtractedAt = &now
	return nil
}
