package events

// WatcherEvent is the sum type of ingestion pipeline notifications
//. Exactly one of the typed fields is non-nil.
type WatcherEvent struct {
	SessionNew *SessionNew
	SessionChanged *SessionChanged
	SessionParsed *SessionParsed
	WatcherError *WatcherError
}

// SessionNew fires when a session's file is observed for the first time,
// that is, when a session with no recorded bytes first grows.
type SessionNew struct {
	ProjectID string
	FilePath string
	FileName string
}

// SessionChanged fires once a file's byte size has been observed to move.
type SessionChanged struct {
	SessionID string
	FilePath string
	PrevSize int64
	NewSize int64
}

// SessionParsed fires once storage durably contains every message up to
// MessageCount for SessionID.
type SessionParsed struct {
	SessionID string
	MessageCount int
}

// WatcherError fires on a catastrophic per-file parse failure; parse state
// is left unchanged so the next filesystem event retries.
type WatcherError struct {
	FilePath string
	Error string
}

func NewSessionNewEvent(e SessionNew) WatcherEvent { return WatcherEvent{SessionNew: &e} }
func NewSessionChangedEvent(e SessionChanged) WatcherEvent { return WatcherEvent{SessionChanged: &e} }
func NewSessionParsedEvent(e SessionParsed) WatcherEvent { return WatcherEvent{SessionParsed: &e} }
func NewWatcherErrorEvent(e WatcherError) WatcherEvent { return WatcherEvent{WatcherError: &e} }
