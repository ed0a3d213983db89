package durable

import (
	"context"
	"database/sql"

	"github.com/yologdev/yocore/internal/clock"
	"github.com/yologdev/yocore/internal/errors"
	"github.com/yologdev/yocore/internal/model"
)

// FindOrCreateSession resolves the session tracking filePath, creating it
// on first sight.
func (b *Backend) FindOrCreateSession(ctx context.Context, projectID, filePath, parserName string) (*model.Session, error) {
	s, err := b.GetSessionByFilePath(ctx, filePath)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	now := toUnix(clock.Real{}.Now())
	id := clock.NewID()
	_, err = b.writer.ExecContext(ctx,
		`INSERT INTO sessions (id, project_id, file_path, ai_tool, created_at, indexed_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, projectID, filePath, parserName, now, now)
	if err != nil {
		if isUniqueConstraintError(err) {
			return b.GetSessionByFilePath(ctx, filePath)
		}
		return nil, errors.NewInternal(err)
	}

	return &model.Session{
		ID: id, ProjectID: projectID, FilePath: filePath, AITool: parserName,
		CreatedAt: fromUnix(now), IndexedAt: fromUnix(now),
	}, nil
}

func (b *Backend) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	row := b.reader.QueryRowContext(ctx, sessionSelectSQL+" WHERE id = ?", sessionID)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(sessionID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

func (b *Backend) GetSessionByFilePath(ctx context.Context, filePath string) (*model.Session, error) {
	row := b.reader.QueryRowContext(ctx, sessionSelectSQL+" WHERE file_path = ?", filePath)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(filePath)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

const sessionSelectSQL = `
SELECT id, project_id, file_path, title, ai_tool, message_count, file_size, max_sequence,
 memories_extracted_at, skills_extracted_at, created_at, indexed_at
FROM sessions`

func scanSession(row *sql.Row) (*model.Session, error) {
	var s model.Session
	var title sql.NullString
	var memX, skillX sql.NullInt64
	var created, indexed int64
	err := row.Scan(&s.ID, &s.ProjectID, &s.FilePath, &title, &s.AITool, &s.MessageCount, &s.FileSize,
		&s.MaxSequence, &memX, &skillX, &created, &indexed)
	if err != nil {
		return nil, err
	}
	s.Title = fromNullString(title)
	s.MemoriesExtractedAt = fromNullUnix(memX)
	s.SkillsExtractedAt = fromNullUnix(skillX)
	s.CreatedAt = fromUnix(created)
	s.IndexedAt = fromUnix(indexed)
	return &s, nil
}

// ReplaceSessionMessages discards all existing messages and writes the
// full parse result, used when ingest detects truncation.
func (b *Backend) ReplaceSessionMessages(ctx context.Context, sessionID string, messages []model.Message, fileSize int64) error {
	tx, err := b.writer.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_messages WHERE session_id = ?`, sessionID); err != nil {
		return errors.NewInternal(err)
	}
	if err := insertMessages(ctx, tx, sessionID, messages); err != nil {
		return err
	}
	if err := touchSessionStats(ctx, tx, sessionID, messages, fileSize, true); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// AppendSessionMessages writes newly-parsed messages onto the end of a
// session's transcript.
func (b *Backend) AppendSessionMessages(ctx context.Context, sessionID string, messages []model.Message, fileSize int64) error {
	if len(messages) == 0 {
		return nil
	}
	tx, err := b.writer.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if err := insertMessages(ctx, tx, sessionID, messages); err != nil {
		return err
	}
	if err := touchSessionStats(ctx, tx, sessionID, messages, fileSize, false); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func insertMessages(ctx context.Context, tx *sql.Tx, sessionID string, messages []model.Message) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO session_messages
		 (session_id, sequence_num, role, content_preview, search_content, has_code, has_error,
		 tool_name, byte_offset, byte_length, tokens, model, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for _, m := range messages {
		_, err := stmt.ExecContext(ctx, sessionID, m.SequenceNum, string(m.Role), m.ContentPreview,
			m.SearchContent, boolToInt(m.HasCode), boolToInt(m.HasError), toNullString(m.ToolName),
			m.ByteOffset, m.ByteLength, m.Tokens, toNullString(m.Model), toUnix(m.Timestamp))
		if err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

func touchSessionStats(ctx context.Context, tx *sql.Tx, sessionID string, appended []model.Message, fileSize int64, replaced bool) error {
	maxSeq := 0
	for _, m := range appended {
		if m.SequenceNum > maxSeq {
			maxSeq = m.SequenceNum
		}
	}

	now := toUnix(clock.Real{}.Now())
	var countExpr string
	if replaced {
		countExpr = "message_count = ?"
	} else {
		countExpr = "message_count = message_count + ?"
	}

	query := `UPDATE sessions SET ` + countExpr + `, file_size = ?, indexed_at = ?`
	args := []any{len(appended), fileSize, now}
	switch {
	case replaced:
		// A full re-parse's max sequence reflects the current file
		// contents exactly, including downward on truncation, so it
		// must be set unconditionally rather than only raised.
		query += `, max_sequence = ?`
		args = append(args, maxSeq)
	case maxSeq > 0:
		query += `, max_sequence = CASE WHEN max_sequence < ? THEN ? ELSE max_sequence END`
		args = append(args, maxSeq, maxSeq)
	}
	query += ` WHERE id = ?`
	args = append(args, sessionID)

	_, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func (b *Backend) GetSessionBytesWindow(ctx context.Context, sessionID string, byteOffset, byteLength int64) ([]byte, error) {
	rows, err := b.reader.QueryContext(ctx,
		`SELECT search_content FROM session_messages
		 WHERE session_id = ? AND byte_offset >= ? AND byte_offset < ?
		 ORDER BY sequence_num`, sessionID, byteOffset, byteOffset+byteLength)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var buf []byte
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, errors.NewInternal(err)
		}
		buf = append(buf, []byte(s)...)
		buf = append(buf, '\n')
	}
	return buf, rows.Err()
}

func (b *Backend) ListSessionMessages(ctx context.Context, sessionID string, limit, offset int) ([]model.Message, error) {
	rows, err := b.reader.QueryContext(ctx, `
		SELECT session_id, sequence_num, role, content_preview, search_content, has_code, has_error,
		 tool_name, byte_offset, byte_length, tokens, model, timestamp
		FROM session_messages WHERE session_id = ?
		ORDER BY sequence_num LIMIT ? OFFSET ?`, sessionID, limit, offset)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func scanMessage(rows *sql.Rows) (*model.Message, error) {
	var m model.Message
	var role string
	var toolName, modelName sql.NullString
	var hasCode, hasErr int
	var ts int64
	err := rows.Scan(&m.SessionID, &m.SequenceNum, &role, &m.ContentPreview, &m.SearchContent,
		&hasCode, &hasErr, &toolName, &m.ByteOffset, &m.ByteLength, &m.Tokens, &modelName, &ts)
	if err != nil {
		return nil, err
	}
	m.Role = model.Role(role)
	m.HasCode = hasCode != 0
	m.HasError = hasErr != 0
	m.ToolName = fromNullString(toolName)
	m.Model = fromNullString(modelName)
	m.Timestamp = fromUnix(ts)
	return &m, nil
}

func (b *Backend) SetSessionTitle(ctx context.Context, sessionID, title string) error {
	_, err := b.writer.ExecContext(ctx, `UPDATE sessions SET title = ? WHERE id = ?`, title, sessionID)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func (b *Backend) MarkMemoriesExtracted(ctx context.Context, sessionID string) error {
	_, err := b.writer.ExecContext(ctx, `UPDATE sessions SET memories_extracted_at = ? WHERE id = ?`,
		toUnix(clock.Real{}.Now()), sessionID)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func (b *Backend) MarkSkillsExtracted(ctx context.Context, sessionID string) error {
	_, err := b.writer.ExecContext(ctx, `UPDATE sessions SET skills_extracted_at = ? WHERE id = ?`,
		toUnix(clock.Real{}.Now()), sessionID)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
