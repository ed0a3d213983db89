package durable

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/yologdev/yocore/internal/clock"
	"github.com/yologdev/yocore/internal/errors"
	"github.com/yologdev/yocore/internal/model"
	"github.com/yologdev/yocore/internal/storage"
)

func (b *Backend) InsertSkill(ctx context.Context, s *model.Skill) (int64, error) {
	if s.ExtractedAt.IsZero() {
		s.ExtractedAt = clock.Real{}.Now()
	}
	res, err := b.writer.ExecContext(ctx, `
		INSERT INTO skills (project_id, session_id, name, description, steps_json, confidence, extracted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ProjectID, s.SessionID, s.Name, s.Description, encodeStrings(s.Steps), s.Confidence, toUnix(s.ExtractedAt))
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return res.LastInsertId()
}

func (b *Backend) ListSkills(ctx context.Context, filter model.SkillFilter) ([]model.Skill, error) {
	query := `
		SELECT id, project_id, session_id, name, description, steps_json, confidence, extracted_at
		FROM skills WHERE project_id = ? ORDER BY extracted_at DESC`
	args := []any{filter.ProjectID}
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := b.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []model.Skill
	for rows.Next() {
		s, err := scanSkillRow(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func scanSkillRow(rows *sql.Rows) (*model.Skill, error) {
	var s model.Skill
	var steps sql.NullString
	var extracted int64
	if err := rows.Scan(&s.ID, &s.ProjectID, &s.SessionID, &s.Name, &s.Description, &steps, &s.Confidence, &extracted); err != nil {
		return nil, err
	}
	s.Steps = decodeStrings(steps)
	s.ExtractedAt = fromUnix(extracted)
	return &s, nil
}

func (b *Backend) DeleteSkill(ctx context.Context, id int64) error {
	res, err := b.writer.ExecContext(ctx, `DELETE FROM skills WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRowsAffected(res, fmt.Sprintf("%d", id))
}

func (b *Backend) PutSkillEmbedding(ctx context.Context, skillID int64, vector []float32) error {
	_, err := b.writer.ExecContext(ctx,
		`INSERT INTO skill_embeddings (skill_id, vector) VALUES (?, ?)
		 ON CONFLICT(skill_id) DO UPDATE SET vector = excluded.vector`,
		skillID, encodeVector(vector))
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func (b *Backend) GetSkillEmbedding(ctx context.Context, skillID int64) (*model.SkillEmbedding, error) {
	var blob []byte
	err := b.reader.QueryRowContext(ctx, `SELECT vector FROM skill_embeddings WHERE skill_id = ?`, skillID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(fmt.Sprintf("%d", skillID))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &model.SkillEmbedding{SkillID: skillID, Vector: decodeVector(blob)}, nil
}

func (b *Backend) ListSkillEmbeddings(ctx context.Context, projectID string) ([]model.SkillEmbedding, error) {
	rows, err := b.reader.QueryContext(ctx, `
		SELECT e.skill_id, e.vector FROM skill_embeddings e
		JOIN skills s ON s.id = e.skill_id
		WHERE s.project_id = ?`, projectID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []model.SkillEmbedding
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, model.SkillEmbedding{SkillID: id, Vector: decodeVector(blob)})
	}
	return out, rows.Err()
}

func (b *Backend) ListSkillsMissingEmbeddings(ctx context.Context, limit int) ([]model.Skill, error) {
	rows, err := b.reader.QueryContext(ctx, `
		SELECT s.id, s.project_id, s.session_id, s.name, s.description, s.steps_json, s.confidence, s.extracted_at
		FROM skills s LEFT JOIN skill_embeddings e ON e.skill_id = s.id
		WHERE e.skill_id IS NULL LIMIT ?`, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []model.Skill
	for rows.Next() {
		s, err := scanSkillRow(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (b *Backend) FTSSearchSkills(ctx context.Context, query, projectID string, limit int) ([]storage.SkillSearchResult, error) {
	rows, err := b.reader.QueryContext(ctx, `
		SELECT sk.id, sk.project_id, sk.session_id, sk.name, sk.description, sk.steps_json, sk.confidence, sk.extracted_at,
		 snippet(skills_fts, 1, '<b>', '</b>', '...', 16)
		FROM skills_fts
		JOIN skills sk ON sk.id = skills_fts.rowid
		WHERE skills_fts MATCH ? AND sk.project_id = ?
		ORDER BY rank LIMIT ?`, query, projectID, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []storage.SkillSearchResult
	rank := 0
	for rows.Next() {
		rank++
		var s model.Skill
		var steps sql.NullString
		var extracted int64
		var snippet string
		err := rows.Scan(&s.ID, &s.ProjectID, &s.SessionID, &s.Name, &s.Description, &steps, &s.Confidence, &extracted, &snippet)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		s.Steps = decodeStrings(steps)
		s.ExtractedAt = fromUnix(extracted)
		out = append(out, storage.SkillSearchResult{Skill: s, Snippet: snippet, Rank: rank})
	}
	return out, rows.Err()
}
