package durable

import (
	"context"
	"database/sql"

	"github.com/yologdev/yocore/internal/clock"
	"github.com/yologdev/yocore/internal/errors"
	"github.com/yologdev/yocore/internal/model"
)

// UpsertProject finds a project by folderPath or creates one. folderPath
// is resolved by the caller by walking up from the session file's
// directory to the owning project root.
func (b *Backend) UpsertProject(ctx context.Context, folderPath, name string) (*model.Project, error) {
	row := b.reader.QueryRowContext(ctx,
		`SELECT id, name, folder_path, created_at, updated_at FROM projects WHERE folder_path = ?`,
		folderPath)
	p, err := scanProject(row)
	if err == nil {
		return p, nil
	}
	if err != sql.ErrNoRows {
		return nil, errors.NewInternal(err)
	}

	now := toUnix(clock.Real{}.Now())
	id := clock.NewID()
	_, err = b.writer.ExecContext(ctx,
		`INSERT INTO projects (id, name, folder_path, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, name, folderPath, now, now)
	if err != nil {
		if isUniqueConstraintError(err) {
			row := b.reader.QueryRowContext(ctx,
				`SELECT id, name, folder_path, created_at, updated_at FROM projects WHERE folder_path = ?`,
				folderPath)
			return scanProject(row)
		}
		return nil, errors.NewInternal(err)
	}

	return &model.Project{ID: id, Name: name, FolderPath: folderPath, CreatedAt: fromUnix(now), UpdatedAt: fromUnix(now)}, nil
}

func (b *Backend) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := b.reader.QueryContext(ctx,
		`SELECT id, name, folder_path, created_at, updated_at FROM projects ORDER BY name`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []model.Project
	for rows.Next() {
		var p model.Project
		var created, updated int64
		if err := rows.Scan(&p.ID, &p.Name, &p.FolderPath, &created, &updated); err != nil {
			return nil, errors.NewInternal(err)
		}
		p.CreatedAt, p.UpdatedAt = fromUnix(created), fromUnix(updated)
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProject(row *sql.Row) (*model.Project, error) {
	var p model.Project
	var created, updated int64
	if err := row.Scan(&p.ID, &p.Name, &p.FolderPath, &created, &updated); err != nil {
		return nil, err
	}
	p.CreatedAt, p.UpdatedAt = fromUnix(created), fromUnix(updated)
	return &p, nil
}
