package httpserver

import (
	"net/http"

	"gozero/internal/server/game"
)

// Server is a thin http.Handler wrapper around a Handler, kept separate so
// additional routes (static assets, health checks) can be layered on
// without growing Handler's ServeHTTP switch.
type Server struct {
	mux *http.ServeMux
}

func NewServer(manager *game.Manager) *Server {
	mux := http.NewServeMux()
	h := NewHandler(manager)
	mux.Handle("/api/new_game", h)
	mux.Handle("/api/play", h)
	mux.Handle("/api/state", h)
	mux.Handle("/api/ai_move", h)
	return &Server{mux: mux}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
