package ephemeral

import (
	"context"

	"github.com/yologdev/yocore/internal/errors"
	"github.com/yologdev/yocore/internal/model"
)

func (b *Backend) ReplaceSessionMessages(ctx context.Context, sessionID string, messages []model.Message, fileSize int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.sessions[sessionID]
	if !ok {
		return errors.NewNotFound(sessionID)
	}

	// Bounded to b.maxMessagesPerSession: the window established by a full
	// (replace) parse. Incremental appends below are not re-truncated
	// against this cap — describes the ephemeral variant as
	// holding "bounded message windows from full parses" plus an unbounded
	// growth tail for messages appended since the last full parse, so a
	// session that is actively being watched keeps every message it has
	// seen since the window was last rebuilt.
	windowed := messages
	if len(windowed) > b.maxMessagesPerSession {
		windowed = windowed[len(windowed)-b.maxMessagesPerSession:]
	}
	st.messages = append([]model.Message(nil), windowed...)
	st.session.MessageCount = len(messages)
	st.session.FileSize = fileSize
	st.session.IndexedAt = b.clk.Now()
	for _, m := range messages {
		if m.SequenceNum > st.session.MaxSequence {
			st.session.MaxSequence = m.SequenceNum
		}
	}
	b.touchLRU(sessionID)
	return nil
}

func (b *Backend) AppendSessionMessages(ctx context.Context, sessionID string, messages []model.Message, fileSize int64) error {
	if len(messages) == 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.sessions[sessionID]
	if !ok {
		return errors.NewNotFound(sessionID)
	}

	st.messages = append(st.messages, messages...)
	st.session.MessageCount += len(messages)
	st.session.FileSize = fileSize
	st.session.IndexedAt = b.clk.Now()
	for _, m := range messages {
		if m.SequenceNum > st.session.MaxSequence {
			st.session.MaxSequence = m.SequenceNum
		}
	}
	b.touchLRU(sessionID)
	return nil
}

func (b *Backend) GetSessionBytesWindow(ctx context.Context, sessionID string, byteOffset, byteLength int64) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st, ok := b.sessions[sessionID]
	if !ok {
		return nil, errors.NewNotFound(sessionID)
	}

	var buf []byte
	for _, m := range st.messages {
		if m.ByteOffset >= byteOffset && m.ByteOffset < byteOffset+byteLength {
			buf = append(buf, []byte(m.SearchContent)...)
			buf = append(buf, '\n')
		}
	}
	return buf, nil
}

func (b *Backend) ListSessionMessages(ctx context.Context, sessionID string, limit, offset int) ([]model.Message, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	st, ok := b.sessions[sessionID]
	if !ok {
		return nil, errors.NewNotFound(sessionID)
	}

	if offset >= len(st.messages) {
		return nil, nil
	}
	end := len(st.messages)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]model.Message, end-offset)
	copy(out, st.messages[offset:end])
	return out, nil
}
