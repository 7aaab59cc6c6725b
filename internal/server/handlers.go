// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, the roster endpoint and the built-in chat page.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Tyrowin/livechat/internal/coordinator"
)

const (
	healthMessage  = "livechat server is running"
	pumpsPerClient = 2
)

// Server adapts WebSocket connections to the coordinator's event contract.
type Server struct {
	cfg      Config
	log      *slog.Logger
	coord    *coordinator.Coordinator
	upgrader websocket.Upgrader
	wg       sync.WaitGroup
	mu       sync.Mutex
	closing  bool
}

// New creates a gateway in front of coord.
func New(cfg Config, log *slog.Logger, coord *coordinator.Coordinator) *Server {
	cfg = sanitizeConfig(cfg)
	origins := newOriginPolicy(log, cfg.Origins())

	return &Server{
		cfg:   cfg,
		log:   log,
		coord: coord,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
	}
}

// WebSocketHandler upgrades GET requests to WebSocket, announces the new
// connection to the coordinator and starts the client's pumps.
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	if !s.admit() {
		http.Error(w, "Server is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		s.wg.Add(-pumpsPerClient)
		return
	}

	client := NewClient(conn, s.coord, s.log, s.cfg, r.RemoteAddr)
	if err := s.coord.Connect(r.Context(), client); err != nil {
		s.log.Warn("Coordinator refused connection", "addr", r.RemoteAddr, "error", err)
		_ = conn.Close()
		s.wg.Add(-pumpsPerClient)
		return
	}
	s.log.Debug("Client connected", "conn", client.ID(), "addr", r.RemoteAddr)

	go func() {
		defer s.wg.Done()
		client.writePump()
	}()
	go func() {
		defer s.wg.Done()
		client.readPump()
	}()
}

// admit reserves the pump goroutines of a new connection, unless shutdown has
// begun. The reservation and the closing check share a lock so that Shutdown's
// Wait never races an Add.
func (s *Server) admit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closing {
		return false
	}
	s.wg.Add(pumpsPerClient)
	return true
}

// HealthHandler provides a simple health check endpoint that returns server status.
func (s *Server) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, healthMessage)
}

type usersResponse struct {
	Users       []string `json:"users"`
	Connections int      `json:"connections"`
}

// UsersHandler reports the current roster and the number of open connections.
func (s *Server) UsersHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	resp := usersResponse{Users: s.coord.Roster(), Connections: s.coord.Connections()}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Warn("Error writing users response", "error", err)
	}
}

// ChatPageHandler serves the browser client.
func (s *Server) ChatPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := fmt.Fprint(w, chatPage); err != nil {
		s.log.Warn("Error writing HTML response", "error", err)
	}
}

// Shutdown stops the coordinator, which closes every client, and waits for
// the client pumps to finish or for timeout to elapse.
func (s *Server) Shutdown(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	if err := s.coord.Shutdown(timeout); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("All client connections closed")
		return nil
	case <-time.After(time.Until(deadline)):
		s.log.Warn("Shutdown timeout reached, some client goroutines may still be running")
		return fmt.Errorf("waiting for clients: %w", errShutdownTimeout)
	}
}
