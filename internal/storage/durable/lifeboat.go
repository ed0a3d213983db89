package durable

import (
	"context"
	"database/sql"

	"github.com/yologdev/yocore/internal/clock"
	"github.com/yologdev/yocore/internal/errors"
	"github.com/yologdev/yocore/internal/model"
)

// UpsertSessionContext writes the "lifeboat" snapshot, replacing any prior
// snapshot for the session.
func (b *Backend) UpsertSessionContext(ctx context.Context, sc *model.SessionContext) error {
	now := clock.Real{}.Now()
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = now
	}
	sc.UpdatedAt = now

	_, err := b.writer.ExecContext(ctx, `
		INSERT INTO session_contexts
		 (session_id, project_id, active_task, recent_decisions_json, open_questions_json,
		 resume_context, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
		 active_task = excluded.active_task,
		 recent_decisions_json = excluded.recent_decisions_json,
		 open_questions_json = excluded.open_questions_json,
		 resume_context = excluded.resume_context,
		 source = excluded.source,
		 updated_at = excluded.updated_at`,
		sc.SessionID, sc.ProjectID, toNullString(sc.ActiveTask), encodeStrings(sc.RecentDecisions),
		encodeStrings(sc.OpenQuestions), sc.ResumeContext, toNullString(sc.Source),
		toUnix(sc.CreatedAt), toUnix(sc.UpdatedAt))
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func (b *Backend) GetSessionContext(ctx context.Context, sessionID string) (*model.SessionContext, error) {
	row := b.reader.QueryRowContext(ctx, `
		SELECT session_id, project_id, active_task, recent_decisions_json, open_questions_json,
		 resume_context, source, created_at, updated_at
		FROM session_contexts WHERE session_id = ?`, sessionID)

	var sc model.SessionContext
	var activeTask, source, decisions, questions sql.NullString
	var created, updated int64
	err := row.Scan(&sc.SessionID, &sc.ProjectID, &activeTask, &decisions, &questions,
		&sc.ResumeContext, &source, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(sessionID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	sc.ActiveTask = fromNullString(activeTask)
	sc.Source = fromNullString(source)
	sc.RecentDecisions = decodeStrings(decisions)
	sc.OpenQuestions = decodeStrings(questions)
	sc.CreatedAt = fromUnix(created)
	sc.UpdatedAt = fromUnix(updated)
	return &sc, nil
}
