// Package server wires HTTP handlers into a ServeMux for the livechat
// application via routing helpers.
package server

import "net/http"

// Routes configures and returns an HTTP ServeMux with all application routes.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.HealthHandler)
	mux.HandleFunc("/ws", s.WebSocketHandler)
	mux.HandleFunc("/api/users", s.UsersHandler)
	mux.HandleFunc("/chat", s.ChatPageHandler)
	return mux
}
