package server

import (
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/wanderhappen/wanderchat/internal/chat"
)

// backend bundles an isolated chat backend for one test case.
type backend struct {
	ts       *httptest.Server
	sessions *chat.SessionStore
	ledger   *chat.Ledger
	presence *chat.Presence
	hub      *Hub
}

func newTestBackend(t *testing.T) *backend {
	t.Helper()
	return newTestBackendWithConfig(t, func(*Config) {})
}

// newTestBackendWithConfig lets hardening tests tighten individual knobs
// (rate limit, frame size) while keeping the permissive defaults elsewhere.
func newTestBackendWithConfig(t *testing.T, tweak func(*Config)) *backend {
	t.Helper()

	sessions := chat.NewSessionStore(slog.Default())
	ledger := chat.NewLedger(slog.Default())
	presence := chat.NewPresence()

	hub := NewHub(sessions, ledger, presence, slog.Default())
	go hub.Run()

	cfg := DefaultConfig()
	cfg.AllowedOrigins = []string{"*"}
	cfg.RateLimitBurst = 100
	tweak(&cfg)

	handler := NewHandler(hub, sessions, cfg, slog.Default())
	ts := httptest.NewServer(SetupRoutes(handler))

	t.Cleanup(func() {
		ts.Close()
		_ = hub.Shutdown(2 * time.Second)
	})

	return &backend{
		ts:       ts,
		sessions: sessions,
		ledger:   ledger,
		presence: presence,
		hub:      hub,
	}
}

func (b *backend) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(b.ts.URL, "http") + "/ws"
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}

	conn, resp, err := dialer.Dial(wsURL, nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// wireEvent mirrors the outbound envelope with the payload left raw so each
// test decodes only what it asserts on.
type wireEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev wireEvent
	require.NoError(t, json.Unmarshal(raw, &ev))
	return ev
}

// expectEvent reads the next frame and asserts its type, returning the
// decoded payload bytes.
func expectEvent(t *testing.T, conn *websocket.Conn, eventType string) json.RawMessage {
	t.Helper()

	ev := readEvent(t, conn)
	require.Equal(t, eventType, ev.Type)
	return ev.Data
}

// expectSilence asserts that no frame arrives within the window. The read
// deadline poisons the connection, so this is only safe as a connection's
// final assertion.
func expectSilence(t *testing.T, conn *websocket.Conn, window time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(window)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "expected no event, but one arrived")
}

func sendAction(t *testing.T, conn *websocket.Conn, actionType string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Inbound{Type: actionType, Data: payload}))
}

func decodeData[T any](t *testing.T, data json.RawMessage) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}
