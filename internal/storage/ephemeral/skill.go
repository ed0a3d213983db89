package ephemeral

import (
	"context"
	"fmt"
	"sort"

	"github.com/yologdev/yocore/internal/errors"
	"github.com/yologdev/yocore/internal/model"
	"github.com/yologdev/yocore/internal/storage"
)

func (b *Backend) InsertSkill(ctx context.Context, s *model.Skill) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s.ExtractedAt.IsZero() {
		s.ExtractedAt = b.clk.Now()
	}
	b.nextSkillID++
	s.ID = b.nextSkillID
	stored := *s
	b.skills[s.ID] = &stored
	return s.ID, nil
}

func (b *Backend) ListSkills(ctx context.Context, filter model.SkillFilter) ([]model.Skill, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []model.Skill
	for _, s := range b.skills {
		if s.ProjectID == filter.ProjectID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExtractedAt.After(out[j].ExtractedAt) })
	return paginateSkills(out, filter.Limit, filter.Offset), nil
}

func paginateSkills(out []model.Skill, limit, offset int) []model.Skill {
	if offset >= len(out) {
		return nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (b *Backend) DeleteSkill(ctx context.Context, id int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.skills[id]; !ok {
		return errors.NewNotFound(fmt.Sprintf("%d", id))
	}
	delete(b.skills, id)
	delete(b.skillEmbed, id)
	return nil
}

func (b *Backend) PutSkillEmbedding(ctx context.Context, skillID int64, vector []float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.skills[skillID]; !ok {
		return errors.NewNotFound(fmt.Sprintf("%d", skillID))
	}
	b.skillEmbed[skillID] = model.SkillEmbedding{SkillID: skillID, Vector: append([]float32(nil), vector...)}
	return nil
}

func (b *Backend) GetSkillEmbedding(ctx context.Context, skillID int64) (*model.SkillEmbedding, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.skillEmbed[skillID]
	if !ok {
		return nil, errors.NewNotFound(fmt.Sprintf("%d", skillID))
	}
	return &e, nil
}

func (b *Backend) ListSkillEmbeddings(ctx context.Context, projectID string) ([]model.SkillEmbedding, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []model.SkillEmbedding
	for id, e := range b.skillEmbed {
		s, ok := b.skills[id]
		if !ok || s.ProjectID != projectID {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (b *Backend) ListSkillsMissingEmbeddings(ctx context.Context, limit int) ([]model.Skill, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []model.Skill
	for id, s := range b.skills {
		if _, ok := b.skillEmbed[id]; ok {
			continue
		}
		out = append(out, *s)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (b *Backend) FTSSearchSkills(ctx context.Context, query, projectID string, limit int) ([]storage.SkillSearchResult, error) {
	return nil, notSupported("FTSSearchSkills")
}
