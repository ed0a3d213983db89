package durable

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/yologdev/yocore/internal/errors"
	"github.com/yologdev/yocore/internal/model"
)

func (b *Backend) InsertMarker(ctx context.Context, m *model.Marker) (int64, error) {
	res, err := b.writer.ExecContext(ctx, `
		INSERT INTO markers (session_id, event_index, marker_type, label, description)
		VALUES (?, ?, ?, ?, ?)`,
		m.SessionID, m.EventIndex, string(m.MarkerType), m.Label, toNullString(m.Description))
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return res.LastInsertId()
}

func (b *Backend) ListMarkers(ctx context.Context, sessionID string) ([]model.Marker, error) {
	rows, err := b.reader.QueryContext(ctx, `
		SELECT id, session_id, event_index, marker_type, label, description
		FROM markers WHERE session_id = ? ORDER BY event_index`, sessionID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []model.Marker
	for rows.Next() {
		var m model.Marker
		var markerType string
		var desc sql.NullString
		if err := rows.Scan(&m.ID, &m.SessionID, &m.EventIndex, &markerType, &m.Label, &desc); err != nil {
			return nil, errors.NewInternal(err)
		}
		m.MarkerType = model.MarkerType(markerType)
		m.Description = fromNullString(desc)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (b *Backend) DeleteMarker(ctx context.Context, id int64) error {
	res, err := b.writer.ExecContext(ctx, `DELETE FROM markers WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRowsAffected(res, fmt.Sprintf("%d", id))
}
