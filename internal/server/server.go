// Package server serves the dashboard live from the current persisted
// state, for local review without regenerating the static page.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/regwatch/regwatch/internal/dashboard"
	"github.com/regwatch/regwatch/internal/state"
)

// Server is the local HTTP server over the state store.
type Server struct {
	store      state.Store
	digestPath string
	mux        *http.ServeMux
}

// New creates a Server. digestPath may be empty.
func New(store state.Store, digestPath string) *Server {
	s := &Server{store: store, digestPath: digestPath, mux: http.NewServeMux()}
	s.mux.HandleFunc("/", s.handleIndex)
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data, err := dashboard.Build(s.store, s.digestPath)
	if err != nil {
		log.Printf("Error building dashboard: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboard.Render(w, data); err != nil {
		log.Printf("Error rendering dashboard: %v", err)
	}
}

// Serve starts the HTTP server on the given port, bound to localhost.
func Serve(store state.Store, digestPath string, port int) error {
	s := New(store, digestPath)
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}
