package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazadus/go-abloop/internal/loop"
	"github.com/hazadus/go-abloop/internal/player"
	"github.com/hazadus/go-abloop/internal/session"
)

type fakeController struct {
	mu          sync.Mutex
	intents     []session.Intent
	subscribers []func(session.Event)
	reject      error
	snapshot    session.Snapshot
}

func (f *fakeController) Dispatch(intent session.Intent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents = append(f.intents, intent)
	return f.reject
}

func (f *fakeController) Snapshot() session.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeController) Subscribe(fn func(session.Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribers = append(f.subscribers, fn)
	return func() {}
}

func (f *fakeController) emit(event session.Event) {
	f.mu.Lock()
	subs := append([]func(session.Event){}, f.subscribers...)
	f.mu.Unlock()
	for _, fn := range subs {
		fn(event)
	}
}

func (f *fakeController) received() []session.Intent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]session.Intent{}, f.intents...)
}

func newTestServer(t *testing.T, ctrl *fakeController) (*Server, *httptest.Server) {
	t.Helper()
	t.Setenv("GIN_MODE", "test")

	ctx, cancel := context.WithCancel(context.Background())
	s := NewServer(ctrl, Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	s.Start(ctx)
	ts := httptest.NewServer(s.Handler())

	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return s, ts
}

func postIntent(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url+"/api/intents", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, &fakeController{})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "healthy", payload["status"])
	assert.Equal(t, "abloop", payload["service"])
}

func TestState(t *testing.T) {
	ctrl := &fakeController{snapshot: session.Snapshot{
		Path:       "/music/song.mp3",
		DurationMs: 180000,
		Volume:     70,
		Loop:       loop.State{A: loop.At(time.Second)},
	}}
	_, ts := newTestServer(t, ctrl)

	resp, err := http.Get(ts.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "/music/song.mp3", payload["path"])
	assert.EqualValues(t, 180000, payload["duration_ms"])
	assert.EqualValues(t, 70, payload["volume"])

	loopState, ok := payload["loop"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "armed_incomplete", loopState["phase"])
}

func TestPostIntent(t *testing.T) {
	ctrl := &fakeController{}
	_, ts := newTestServer(t, ctrl)

	status, payload := postIntent(t, ts.URL, `{"type":"seek_to","position_ms":2500}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", payload["status"])
	assert.Equal(t, []session.Intent{session.SeekTo{Position: 2500 * time.Millisecond}}, ctrl.received())
}

func TestPostIntentMalformed(t *testing.T) {
	ctrl := &fakeController{}
	_, ts := newTestServer(t, ctrl)

	for _, body := range []string{`nope`, `{"type":"explode"}`, `{"type":"open_file"}`} {
		status, payload := postIntent(t, ts.URL, body)
		assert.Equal(t, http.StatusBadRequest, status, body)
		assert.Equal(t, string(session.KindInvalidIntent), payload["kind"], body)
	}
	assert.Empty(t, ctrl.received())
}

func TestPostIntentRejected(t *testing.T) {
	ctrl := &fakeController{reject: fmt.Errorf("воспроизведение: %w", player.ErrNoMediaLoaded)}
	_, ts := newTestServer(t, ctrl)

	status, payload := postIntent(t, ts.URL, `{"type":"play"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, string(session.KindNoMediaLoaded), payload["kind"])
	assert.Contains(t, payload["error"], "воспроизведение")
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil читает сообщения, пока не встретит событие нужного типа
func readUntil(t *testing.T, conn *websocket.Conn, eventType string) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg map[string]any
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg["type"] == eventType {
			return msg
		}
	}
}

func TestWebSocketReceivesInitialState(t *testing.T) {
	_, ts := newTestServer(t, &fakeController{})
	conn := dialWS(t, ts)

	msg := readUntil(t, conn, "loop_state_changed")
	loopState, ok := msg["loop"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "idle", loopState["phase"])
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	_, ts := newTestServer(t, &fakeController{})
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"

	header := http.Header{"Origin": []string{"https://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	if conn != nil {
		conn.Close()
	}
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Разрешенный источник подключается
	header = http.Header{"Origin": []string{"http://localhost:5173"}}
	conn, resp, err = websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()
	readUntil(t, conn, "loop_state_changed")
}

func TestUpgraderOriginCheck(t *testing.T) {
	upgrader := newUpgrader([]string{"http://localhost:3000"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://127.0.0.1:8765", true},
		{"https://evil.example", false},
		{"http://localhost:4000", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "http://127.0.0.1:8765/api/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, upgrader.CheckOrigin(r), "origin %q", tt.origin)
	}
}

func TestWebSocketBroadcast(t *testing.T) {
	ctrl := &fakeController{}
	s, ts := newTestServer(t, ctrl)
	first := dialWS(t, ts)
	second := dialWS(t, ts)

	require.Eventually(t, func() bool { return s.Hub().Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	ctrl.emit(session.PositionChanged{Position: 1500 * time.Millisecond})

	for _, conn := range []*websocket.Conn{first, second} {
		msg := readUntil(t, conn, "position_changed")
		assert.EqualValues(t, 1500, msg["position_ms"])
	}
}

func TestWebSocketDispatchesIntents(t *testing.T) {
	ctrl := &fakeController{}
	_, ts := newTestServer(t, ctrl)
	conn := dialWS(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"set_volume","volume":40}`)))

	require.Eventually(t, func() bool { return len(ctrl.received()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, session.SetVolume{Volume: 40}, ctrl.received()[0])
}

func TestWebSocketMalformedIntent(t *testing.T) {
	ctrl := &fakeController{}
	_, ts := newTestServer(t, ctrl)
	conn := dialWS(t, ts)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"explode"}`)))

	msg := readUntil(t, conn, "error")
	assert.Equal(t, string(session.KindInvalidIntent), msg["kind"])
	assert.Empty(t, ctrl.received())
}

func TestHubStopsClients(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := &Client{hub: hub, send: make(chan []byte, 1), remote: "test"}
	require.True(t, hub.Register(client))
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	_, ok := <-client.send
	assert.False(t, ok, "канал клиента должен быть закрыт")
	assert.Equal(t, 0, hub.Clients())
	assert.False(t, hub.Register(client))
}
