package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// keepaliveInterval and heartbeatInterval implement the SSE
// contract: "heartbeat every 30 s with event: heartbeat and {timestamp};
// keepalive whitespace every 15 s."
const (
	keepaliveInterval = 15 * time.Second
	heartbeatInterval = 30 * time.Second
)

// HandleEvents handles GET /api/events — an SSE stream attaching both
// event bus subscriptions.
func (h *Handlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	watcherSub := h.watcher.Subscribe(0)
	defer watcherSub.Unsubscribe()
	aiSub := h.ai.Subscribe(0)
	defer aiSub.Unsubscribe()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-watcherSub.Events():
			if !writeSSEEvent(w, flusher, "watcher", e) {
				return
			}
		case e := <-aiSub.Events():
			if !writeSSEEvent(w, flusher, "ai", e) {
				return
			}
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			payload := map[string]any{"timestamp": time.Now().UTC().Format(time.RFC3339)}
			if !writeSSEEvent(w, flusher, "heartbeat", payload) {
				return
			}
		}
	}
}

// writeSSEEvent writes one `event: <name>` / `data: <json>` frame and
// flushes it. Returns false if the write failed (client gone).
func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, name string, data any) bool {
	body, err := json.Marshal(data)
	if err != nil {
		return true
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, body); err != nil {
		return false
	}
	flusher.Flush()
	return true
}
