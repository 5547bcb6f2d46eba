// Package debugsrv implements the debug/observability HTTP surface of
// SPEC_FULL.md §2 [ADD]: /metrics, /debug/updates and /debug/pending.
// Grounded on the
// teacher's pkg/api/server.go (chi router + promhttp.Handler mounted
// alongside the API routes); this surface carries no data-plane routes of
// its own — it is observability only, per SPEC_FULL.md's Non-goals.
package debugsrv

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ssargent/btreefs/pkg/btree"
)

// UpdatesTextSource is the subset of *btree.Filesystem the debug surface
// consumes, kept as an interface so tests can exercise the handler against
// a fake without a real Filesystem and its collaborators.
type UpdatesTextSource interface {
	UpdatesToText() []string
	NrPending() int
}

// Server wraps a chi.Router exposing the debug surface.
type Server struct {
	router *chi.Mux
	fs     UpdatesTextSource
}

// New builds the debug server's router, grounded on the teacher's
// StartServer: logger + recoverer middleware, promhttp's handler mounted
// at /metrics, then the two JSON debug routes this engine adds.
func New(fs UpdatesTextSource, reg *prometheus.Registry) *Server {
	s := &Server{fs: fs}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/debug/updates", s.handleUpdates)
	r.Get("/debug/pending", s.handlePending)

	s.router = r
	return s
}

// ServeHTTP lets Server itself satisfy http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type updatesResponse struct {
	Updates []string `json:"updates"`
}

func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(updatesResponse{Updates: s.fs.UpdatesToText()})
}

type pendingResponse struct {
	NrPending int `json:"nr_pending"`
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pendingResponse{NrPending: s.fs.NrPending()})
}

// compile-time check that *btree.Filesystem actually satisfies the
// narrow interface this package depends on.
var _ UpdatesTextSource = (*btree.Filesystem)(nil)
