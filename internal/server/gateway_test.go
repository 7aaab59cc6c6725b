package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/livechat/internal/chat"
	"github.com/Tyrowin/livechat/internal/coordinator"
)

const testOriginURL = "http://localhost:3000"

type testGateway struct {
	server *Server
	coord  *coordinator.Coordinator
	http   *httptest.Server
	wsURL  string
}

func newTestGateway(t *testing.T, mutate func(*Config)) *testGateway {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	cfg := NewConfig()
	if mutate != nil {
		mutate(cfg)
	}

	coord := coordinator.New(log, coordinator.Options{})
	go coord.Run()
	srv := New(*cfg, log, coord)
	httpServer := httptest.NewServer(srv.Routes())

	t.Cleanup(func() {
		_ = srv.Shutdown(2 * time.Second)
		httpServer.Close()
	})

	return &testGateway{
		server: srv,
		coord:  coord,
		http:   httpServer,
		wsURL:  "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws",
	}
}

func (g *testGateway) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set("Origin", testOriginURL)
	conn, resp, err := websocket.DefaultDialer.Dial(g.wsURL, header)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (g *testGateway) waitConnections(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return g.coord.Connections() == n }, time.Second, 5*time.Millisecond)
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Frame{Event: event, Data: raw}))
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func readMessage(t *testing.T, conn *websocket.Conn) chat.Message {
	t.Helper()
	frame := readFrame(t, conn)
	require.Equal(t, "message", frame.Event)
	var msg chat.Message
	require.NoError(t, json.Unmarshal(frame.Data, &msg))
	return msg
}

func readUsers(t *testing.T, conn *websocket.Conn) []string {
	t.Helper()
	frame := readFrame(t, conn)
	require.Equal(t, "user_list", frame.Event)
	var users []string
	require.NoError(t, json.Unmarshal(frame.Data, &users))
	return users
}

func expectNoFrame(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	_, raw, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame: %s", raw)
}

func TestGateway_Join_Message_Leave(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t, nil)
	alice := g.dial(t)
	bob := g.dial(t)
	g.waitConnections(t, 2)

	// When Alice registers
	send(t, alice, "register_user", "Alice")

	// Then both connections get the join announcement then the roster
	for _, conn := range []*websocket.Conn{alice, bob} {
		joined := readMessage(t, conn)
		req.Equal("Alice has joined the chat", joined.Text)
		req.Equal(chat.SystemSender, joined.Sender)
		req.True(strings.HasPrefix(joined.ID, "system-"))
		req.Equal([]string{"Alice"}, readUsers(t, conn))
	}

	// When Bob registers
	send(t, bob, "register_user", "Bob")
	for _, conn := range []*websocket.Conn{alice, bob} {
		req.Equal("Bob has joined the chat", readMessage(t, conn).Text)
		req.Equal([]string{"Alice", "Bob"}, readUsers(t, conn))
	}

	// When Alice sends a message with its own id
	send(t, alice, "message", chat.Message{ID: "msg-client-1", Text: "hello", Sender: "Alice", Timestamp: time.Now()})

	// Then everybody, Alice included, gets it unchanged
	for _, conn := range []*websocket.Conn{alice, bob} {
		msg := readMessage(t, conn)
		req.Equal("msg-client-1", msg.ID)
		req.Equal("hello", msg.Text)
		req.Equal("Alice", msg.Sender)
	}

	// When Alice goes away
	req.NoError(alice.Close())

	// Then Bob hears the leave announcement before the new roster
	req.Equal("Alice has left the chat", readMessage(t, bob).Text)
	req.Equal([]string{"Bob"}, readUsers(t, bob))
}

func TestGateway_Message_Without_ID(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t, nil)
	conn := g.dial(t)
	g.waitConnections(t, 1)

	payload := map[string]string{"text": "no id", "sender": "Anon", "timestamp": "2026-01-01T00:00:00Z"}
	send(t, conn, "message", payload)
	send(t, conn, "message", payload)

	first := readMessage(t, conn)
	second := readMessage(t, conn)
	req.True(strings.HasPrefix(first.ID, "msg-"))
	req.True(strings.HasPrefix(second.ID, "msg-"))
	req.NotEqual(first.ID, second.ID)
}

func TestGateway_Message_Payload_Is_Relayed_Verbatim(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t, nil)
	conn := g.dial(t)
	g.waitConnections(t, 1)

	// A numeric timestamp and an extra field go through untouched
	numeric := `{"id":"a","text":"hi","sender":"X","timestamp":1700000000000,"color":"red"}`
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"message","data":`+numeric+`}`)))
	frame := readFrame(t, conn)
	req.Equal("message", frame.Event)
	req.JSONEq(numeric, string(frame.Data))

	// A missing timestamp is not invented; only the missing id is filled in
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"message","data":{"text":"no ts","sender":"X","color":"red"}}`)))
	frame = readFrame(t, conn)
	var fields map[string]any
	req.NoError(json.Unmarshal(frame.Data, &fields))
	req.NotContains(fields, "timestamp")
	req.Equal("red", fields["color"])
	req.Equal("no ts", fields["text"])
	id, ok := fields["id"].(string)
	req.True(ok)
	req.True(strings.HasPrefix(id, "msg-"))
}

func TestGateway_Unregistered_Disconnect_Is_Silent(t *testing.T) {
	g := newTestGateway(t, nil)
	watcher := g.dial(t)
	lurker := g.dial(t)
	g.waitConnections(t, 2)

	require.NoError(t, lurker.Close())
	g.waitConnections(t, 1)

	expectNoFrame(t, watcher, 200*time.Millisecond)
}

func TestGateway_Invalid_Frames_Keep_Connection_Open(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t, nil)
	conn := g.dial(t)
	g.waitConnections(t, 1)

	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	send(t, conn, "typing", true)
	send(t, conn, "register_user", "")

	// The connection still works afterwards
	send(t, conn, "register_user", "Carol")
	req.Equal("Carol has joined the chat", readMessage(t, conn).Text)
	req.Equal([]string{"Carol"}, readUsers(t, conn))
	req.Equal([]string{"Carol"}, g.coord.Roster())
}

func TestGateway_Oversized_Frame_Disconnects(t *testing.T) {
	g := newTestGateway(t, func(cfg *Config) { cfg.MaxMessageSize = 128 })
	conn := g.dial(t)
	g.waitConnections(t, 1)

	send(t, conn, "message", chat.Message{Text: strings.Repeat("x", 512)})

	g.waitConnections(t, 0)
}

func TestGateway_Disallowed_Origin(t *testing.T) {
	g := newTestGateway(t, func(cfg *Config) { cfg.AllowedOrigins = testOriginURL })

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	conn, resp, err := websocket.DefaultDialer.Dial(g.wsURL, header)
	if conn != nil {
		_ = conn.Close()
	}
	require.Error(t, err)
	require.NotNil(t, resp)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGateway_Shutdown_Closes_Clients(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t, nil)
	conn := g.dial(t)
	g.waitConnections(t, 1)

	req.NoError(g.server.Shutdown(2 * time.Second))

	req.NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := conn.ReadMessage()
	req.True(websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
}

func TestGateway_Refuses_Connections_After_Shutdown(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t, nil)

	// Given a gateway that has shut down
	req.NoError(g.server.Shutdown(time.Second))

	// When a client tries to connect
	header := http.Header{}
	header.Set("Origin", testOriginURL)
	conn, resp, err := websocket.DefaultDialer.Dial(g.wsURL, header)
	if conn != nil {
		_ = conn.Close()
	}

	// Then the upgrade is refused
	req.Error(err)
	req.NotNil(resp)
	defer func() { _ = resp.Body.Close() }()
	req.Equal(http.StatusServiceUnavailable, resp.StatusCode)
	req.Zero(g.coord.Connections())
}
