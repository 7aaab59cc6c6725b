package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	g := newTestGateway(t, nil)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		t.Run(method, func(t *testing.T) {
			rr := httptest.NewRecorder()
			g.server.HealthHandler(rr, httptest.NewRequest(method, "/", http.NoBody))

			require.Equal(t, http.StatusOK, rr.Code)
			require.Equal(t, "text/plain", rr.Header().Get("Content-Type"))
			require.Equal(t, healthMessage, rr.Body.String())
		})
	}
}

func TestWebSocketHandler_Rejects_Non_GET(t *testing.T) {
	g := newTestGateway(t, nil)

	rr := httptest.NewRecorder()
	g.server.WebSocketHandler(rr, httptest.NewRequest(http.MethodPost, "/ws", http.NoBody))

	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestUsersHandler(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t, nil)
	conn := g.dial(t)
	g.waitConnections(t, 1)
	send(t, conn, "register_user", "Alice")
	readMessage(t, conn)
	readUsers(t, conn)

	resp, err := http.Get(g.http.URL + "/api/users")
	req.NoError(err)
	defer func() { _ = resp.Body.Close() }()

	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal("application/json", resp.Header.Get("Content-Type"))
	var body usersResponse
	req.NoError(json.NewDecoder(resp.Body).Decode(&body))
	req.Equal([]string{"Alice"}, body.Users)
	req.Equal(1, body.Connections)
}

func TestUsersHandler_Rejects_Non_GET(t *testing.T) {
	g := newTestGateway(t, nil)

	rr := httptest.NewRecorder()
	g.server.UsersHandler(rr, httptest.NewRequest(http.MethodDelete, "/api/users", http.NoBody))

	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestChatPageHandler(t *testing.T) {
	req := require.New(t)
	g := newTestGateway(t, nil)

	rr := httptest.NewRecorder()
	g.server.ChatPageHandler(rr, httptest.NewRequest(http.MethodGet, "/chat", http.NoBody))

	req.Equal(http.StatusOK, rr.Code)
	req.True(strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html"))
	req.Contains(rr.Body.String(), "register_user")
	req.Contains(rr.Body.String(), "user_list")
}
