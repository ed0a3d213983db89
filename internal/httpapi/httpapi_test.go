package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yologdev/yocore/internal/clock"
	"github.com/yologdev/yocore/internal/config"
	"github.com/yologdev/yocore/internal/embeddings"
	"github.com/yologdev/yocore/internal/events"
	"github.com/yologdev/yocore/internal/model"
	"github.com/yologdev/yocore/internal/storage/ephemeral"
)

func newTestServer(t *testing.T, apiKey string) (*httptest.Server, *ephemeral.Backend) {
	t.Helper()
	backend := ephemeral.New(0, 0, clock.Real{})
	watcher := events.New[events.WatcherEvent]()
	ai := events.New[events.AiEvent]()
	instance := &clock.InstanceMetadata{UUID: "instance-1"}
	cfg := config.Default()
	cfg.Server.APIKey = apiKey

	srv := NewServer(backend, embeddings.Get(), watcher, ai, instance, cfg, "test", zap.NewNop())
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts, backend
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func TestHandleHealth_Unauthenticated(t *testing.T) {
	ts, _ := newTestServer(t, "secret")

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeBody(t, resp)
	require.Equal(t, "ok", payload["status"])
	require.Equal(t, "instance-1", payload["instance_uuid"])
	require.Equal(t, "ephemeral", payload["storage"])
	require.Nil(t, payload["instance_name"])
}

func TestAPIRoutes_RequireBearerToken(t *testing.T) {
	ts, _ := newTestServer(t, "secret")

	resp, err := http.Get(ts.URL + "/api/projects")
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	payload := decodeBody(t, resp)
	errObj := payload["error"].(map[string]any)
	require.Equal(t, "UNAUTHORIZED", errObj["code"])
}

func TestAPIRoutes_AcceptValidBearerToken(t *testing.T) {
	ts, _ := newTestServer(t, "secret")

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/projects", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIRoutes_NoConfiguredKeyMeansNoAuth(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp, err := http.Get(ts.URL + "/api/projects")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandleListMemories_FiltersByProject(t *testing.T) {
	ts, backend := newTestServer(t, "")
	ctx := context.Background()

	project, err := backend.UpsertProject(ctx, "/repo/a", "a")
	require.NoError(t, err)
	_, err = backend.InsertMemory(ctx, &model.Memory{
		ProjectID: project.ID,
		MemoryType: model.MemoryFact,
		Title: "m1",
		Content: "c1",
		Confidence: 0.5,
		State: model.StateNew,
	})
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/api/projects/" + project.ID + "/memories")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload := decodeBody(t, resp)
	memories := payload["memories"].([]any)
	require.Len(t, memories, 1)
	require.Equal(t, "m1", memories[0].(map[string]any)["Title"])
}

func TestHandleSearchMemories_EphemeralReturnsNotSupported(t *testing.T) {
	ts, backend := newTestServer(t, "")
	ctx := context.Background()

	project, err := backend.UpsertProject(ctx, "/repo/b", "b")
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/api/memories/search?project_id=" + project.ID + "&query=auth")
	require.NoError(t, err)
	require.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	payload := decodeBody(t, resp)
	errObj := payload["error"].(map[string]any)
	require.Equal(t, "NOT_SUPPORTED_IN_MODE", errObj["code"])
}

func TestSessionContext_SaveAndRetrieveRoundTrip(t *testing.T) {
	ts, backend := newTestServer(t, "")
	ctx := context.Background()

	project, err := backend.UpsertProject(ctx, "/repo/c", "c")
	require.NoError(t, err)
	session, err := backend.FindOrCreateSession(ctx, project.ID, "/repo/c/s.jsonl", "claude_code")
	require.NoError(t, err)

	body, err := json.Marshal(map[string]any{
		"project_id": project.ID,
		"active_task": "auth",
		"recent_decisions": []string{"jwt"},
		"open_questions": []string{"refresh"},
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPut, ts.URL+"/api/sessions/"+session.ID+"/context", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	putResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, putResp.StatusCode)
	putResp.Body.Close()

	getResp, err := http.Get(ts.URL + "/api/sessions/" + session.ID + "/context")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	payload := decodeBody(t, getResp)
	require.Equal(t, "auth", payload["ActiveTask"])
}

func TestHandleEvents_StreamsHeartbeatAndWatcherEvent(t *testing.T) {
	backend := ephemeral.New(0, 0, clock.Real{})
	watcher := events.New[events.WatcherEvent]()
	ai := events.New[events.AiEvent]()
	instance := &clock.InstanceMetadata{UUID: "instance-1"}
	cfg := config.Default()

	srv := NewServer(backend, embeddings.Get(), watcher, ai, instance, cfg, "test", zap.NewNop())
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	client := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)

	respCh := make(chan *http.Response, 1)
	go func() {
		resp, err := client.Do(req)
		if err == nil {
			respCh <- resp
		}
	}()

	// Give the handler time to subscribe before publishing.
	time.Sleep(50 * time.Millisecond)
	watcher.Publish(events.NewSessionNewEvent(events.SessionNew{ProjectID: "p1", FilePath: "/x/s.jsonl"}))

	resp := <-respCh
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	require.Contains(t, string(buf[:n]), "event: watcher")
}
