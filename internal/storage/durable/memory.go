package durable

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/yologdev/yocore/internal/clock"
	"github.com/yologdev/yocore/internal/errors"
	"github.com/yologdev/yocore/internal/model"
	"github.com/yologdev/yocore/internal/storage"
)

func (b *Backend) InsertMemory(ctx context.Context, m *model.Memory) (int64, error) {
	now := clock.Real{}.Now()
	if m.ExtractedAt.IsZero() {
		m.ExtractedAt = now
	}
	if m.State == "" {
		m.State = model.StateNew
	}

	res, err := b.writer.ExecContext(ctx, `
		INSERT INTO memories (project_id, session_id, memory_type, title, content, context,
		 tags_json, confidence, is_validated, state, access_count, extracted_at, last_access_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, NULL)`,
		m.ProjectID, m.SessionID, string(m.MemoryType), m.Title, m.Content, toNullString(m.Context),
		encodeStrings(m.Tags), m.Confidence, boolToInt(m.IsValidated), string(m.State), toUnix(m.ExtractedAt))
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return res.LastInsertId()
}

func (b *Backend) GetMemory(ctx context.Context, id int64) (*model.Memory, error) {
	row := b.reader.QueryRowContext(ctx, memorySelectSQL+" WHERE id = ?", id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(fmt.Sprintf("%d", id))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return m, nil
}

const memorySelectSQL = `
SELECT id, project_id, session_id, memory_type, title, content, context, tags_json,
 confidence, is_validated, state, access_count, extracted_at, last_access_at
FROM memories`

func scanMemory(row *sql.Row) (*model.Memory, error) {
	var m model.Memory
	var memType, state string
	var context, tags sql.NullString
	var isValidated int
	var extractedAt int64
	var lastAccess sql.NullInt64
	err := row.Scan(&m.ID, &m.ProjectID, &m.SessionID, &memType, &m.Title, &m.Content, &context, &tags,
		&m.Confidence, &isValidated, &state, &m.AccessCount, &extractedAt, &lastAccess)
	if err != nil {
		return nil, err
	}
	m.MemoryType = model.MemoryType(memType)
	m.State = model.MemoryState(state)
	m.Context = fromNullString(context)
	m.Tags = decodeStrings(tags)
	m.IsValidated = isValidated != 0
	m.ExtractedAt = fromUnix(extractedAt)
	m.LastAccessAt = fromNullUnix(lastAccess)
	return &m, nil
}

func (b *Backend) ListMemories(ctx context.Context, filter model.MemoryFilter) ([]model.Memory, error) {
	query := `
		SELECT id, project_id, session_id, memory_type, title, content, context, tags_json,
		 confidence, is_validated, state, access_count, extracted_at, last_access_at
		FROM memories WHERE project_id = ?`
	args := []any{filter.ProjectID}

	if filter.State != nil {
		query += ` AND state = ?`
		args = append(args, string(*filter.State))
	} else {
		// Removed memories are excluded from every retrieval surface
		// unless a caller explicitly asks for that state.
		query += ` AND state != 'removed'`
	}
	if len(filter.MemoryTypes) > 0 {
		placeholders := make([]string, len(filter.MemoryTypes))
		for i, t := range filter.MemoryTypes {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		query += ` AND memory_type IN (` + strings.Join(placeholders, ",") + `)`
	}
	query += ` ORDER BY extracted_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := b.reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []model.Memory
	for rows.Next() {
		m, err := scanMemoryRow(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if matchesTags(m.Tags, filter.Tags) {
			out = append(out, *m)
		}
	}
	return out, rows.Err()
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

func scanMemoryRow(rows *sql.Rows) (*model.Memory, error) {
	var m model.Memory
	var memType, state string
	var context, tags sql.NullString
	var isValidated int
	var extractedAt int64
	var lastAccess sql.NullInt64
	err := rows.Scan(&m.ID, &m.ProjectID, &m.SessionID, &memType, &m.Title, &m.Content, &context, &tags,
		&m.Confidence, &isValidated, &state, &m.AccessCount, &extractedAt, &lastAccess)
	if err != nil {
		return nil, err
	}
	m.MemoryType = model.MemoryType(memType)
	m.State = model.MemoryState(state)
	m.Context = fromNullString(context)
	m.Tags = decodeStrings(tags)
	m.IsValidated = isValidated != 0
	m.ExtractedAt = fromUnix(extractedAt)
	m.LastAccessAt = fromNullUnix(lastAccess)
	return &m, nil
}

func (b *Backend) UpdateMemoryState(ctx context.Context, id int64, state model.MemoryState) error {
	res, err := b.writer.ExecContext(ctx, `UPDATE memories SET state = ? WHERE id = ?`, string(state), id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRowsAffected(res, fmt.Sprintf("%d", id))
}

func (b *Backend) SetMemoryValidated(ctx context.Context, id int64, validated bool) error {
	res, err := b.writer.ExecContext(ctx, `UPDATE memories SET is_validated = ? WHERE id = ?`, boolToInt(validated), id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return requireRowsAffected(res, fmt.Sprintf("%d", id))
}

func (b *Backend) TouchMemoryAccess(ctx context.Context, id int64) error {
	_, err := b.writer.ExecContext(ctx,
		`UPDATE memories SET access_count = access_count + 1, last_access_at = ? WHERE id = ?`,
		toUnix(clock.Real{}.Now()), id)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func (b *Backend) SoftRemoveMemory(ctx context.Context, id int64) error {
	return b.UpdateMemoryState(ctx, id, model.StateRemoved)
}

func (b *Backend) PutMemoryEmbedding(ctx context.Context, memoryID int64, vector []float32) error {
	_, err := b.writer.ExecContext(ctx,
		`INSERT INTO memory_embeddings (memory_id, vector) VALUES (?, ?)
		 ON CONFLICT(memory_id) DO UPDATE SET vector = excluded.vector`,
		memoryID, encodeVector(vector))
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func (b *Backend) GetMemoryEmbedding(ctx context.Context, memoryID int64) (*model.MemoryEmbedding, error) {
	var blob []byte
	err := b.reader.QueryRowContext(ctx, `SELECT vector FROM memory_embeddings WHERE memory_id = ?`, memoryID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(fmt.Sprintf("%d", memoryID))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &model.MemoryEmbedding{MemoryID: memoryID, Vector: decodeVector(blob)}, nil
}

func (b *Backend) ListMemoryEmbeddings(ctx context.Context, projectID string) ([]model.MemoryEmbedding, error) {
	rows, err := b.reader.QueryContext(ctx, `
		SELECT e.memory_id, e.vector FROM memory_embeddings e
		JOIN memories m ON m.id = e.memory_id
		WHERE m.project_id = ? AND m.state != ?`, projectID, string(model.StateRemoved))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []model.MemoryEmbedding
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, model.MemoryEmbedding{MemoryID: id, Vector: decodeVector(blob)})
	}
	return out, rows.Err()
}

func (b *Backend) ListMemoriesMissingEmbeddings(ctx context.Context, limit int) ([]model.Memory, error) {
	rows, err := b.reader.QueryContext(ctx, `
		SELECT m.id, m.project_id, m.session_id, m.memory_type, m.title, m.content, m.context, m.tags_json,
		 m.confidence, m.is_validated, m.state, m.access_count, m.extracted_at, m.last_access_at
		FROM memories m LEFT JOIN memory_embeddings e ON e.memory_id = m.id
		WHERE e.memory_id IS NULL LIMIT ?`, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []model.Memory
	for rows.Next() {
		m, err := scanMemoryRow(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// FTSSearchMessages runs an FTS5 MATCH query over session_messages, scoped
// to a project via its sessions.
func (b *Backend) FTSSearchMessages(ctx context.Context, query, projectID string, limit, offset int) ([]storage.MessageSearchResult, int, error) {
	rows, err := b.reader.QueryContext(ctx, `
		SELECT sm.session_id, sm.sequence_num, sm.role, sm.content_preview, sm.search_content, sm.has_code,
		 sm.has_error, sm.tool_name, sm.byte_offset, sm.byte_length, sm.tokens, sm.model, sm.timestamp,
		 snippet(session_messages_fts, 0, '<b>', '</b>', '...', 16)
		FROM session_messages_fts
		JOIN session_messages sm ON sm.id = session_messages_fts.rowid
		JOIN sessions s ON s.id = sm.session_id
		WHERE session_messages_fts MATCH ? AND s.project_id = ?
		ORDER BY rank LIMIT ? OFFSET ?`, query, projectID, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []storage.MessageSearchResult
	for rows.Next() {
		var role string
		var m model.Message
		var toolName, modelName sql.NullString
		var hasCode, hasErr int
		var ts int64
		var snippet string
		err := rows.Scan(&m.SessionID, &m.SequenceNum, &role, &m.ContentPreview, &m.SearchContent,
			&hasCode, &hasErr, &toolName, &m.ByteOffset, &m.ByteLength, &m.Tokens, &modelName, &ts, &snippet)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		m.Role = model.Role(role)
		m.HasCode, m.HasError = hasCode != 0, hasErr != 0
		m.ToolName, m.Model = fromNullString(toolName), fromNullString(modelName)
		m.Timestamp = fromUnix(ts)
		out = append(out, storage.MessageSearchResult{Message: m, Snippet: snippet})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	var total int
	err = b.reader.QueryRowContext(ctx, `
		SELECT count(*) FROM session_messages_fts
		JOIN session_messages sm ON sm.id = session_messages_fts.rowid
		JOIN sessions s ON s.id = sm.session_id
		WHERE session_messages_fts MATCH ? AND s.project_id = ?`, query, projectID).Scan(&total)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return out, total, nil
}

// FTSSearchMemories runs the keyword leg of the hybrid search fusion,
// returning rank-ordered results for RRF to consume.
func (b *Backend) FTSSearchMemories(ctx context.Context, query string, filter model.MemoryFilter, limit int) ([]storage.MemorySearchResult, error) {
	sqlQuery := `
		SELECT m.id, m.project_id, m.session_id, m.memory_type, m.title, m.content, m.context, m.tags_json,
		 m.confidence, m.is_validated, m.state, m.access_count, m.extracted_at, m.last_access_at,
		 snippet(memories_fts, 1, '<b>', '</b>', '...', 16)
		FROM memories_fts
		JOIN memories m ON m.id = memories_fts.rowid
		WHERE memories_fts MATCH ? AND m.project_id = ?`
	args := []any{query, filter.ProjectID}
	if filter.State != nil {
		sqlQuery += ` AND m.state = ?`
		args = append(args, string(*filter.State))
	} else {
		// Removed memories are excluded from every retrieval surface
		// unless a caller explicitly asks for that state.
		sqlQuery += ` AND m.state != 'removed'`
	}
	sqlQuery += ` ORDER BY rank LIMIT ?`
	args = append(args, limit)

	rows, err := b.reader.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []storage.MemorySearchResult
	rank := 0
	for rows.Next() {
		rank++
		var memType, state string
		var m model.Memory
		var context, tags sql.NullString
		var isValidated int
		var extractedAt int64
		var lastAccess sql.NullInt64
		var snippet string
		err := rows.Scan(&m.ID, &m.ProjectID, &m.SessionID, &memType, &m.Title, &m.Content, &context, &tags,
			&m.Confidence, &isValidated, &state, &m.AccessCount, &extractedAt, &lastAccess, &snippet)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		m.MemoryType, m.State = model.MemoryType(memType), model.MemoryState(state)
		m.Context, m.Tags = fromNullString(context), decodeStrings(tags)
		m.IsValidated = isValidated != 0
		m.ExtractedAt = fromUnix(extractedAt)
		m.LastAccessAt = fromNullUnix(lastAccess)
		out = append(out, storage.MemorySearchResult{Memory: m, Snippet: snippet, Rank: rank})
	}
	return out, rows.Err()
}

func requireRowsAffected(res sql.Result, identifier string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(identifier)
	}
	return nil
}
