// Package httpapi exposes the demo cluster over HTTP for observation and
// fault injection. It is scaffolding around the core: inter-node traffic
// never crosses this boundary.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"clustersim/internal/cluster"
)

// Server serves the HTTP API backed by a Cluster.
type Server struct {
	c *cluster.Cluster
}

// New creates a new HTTP API server.
func New(c *cluster.Cluster) *Server {
	return &Server{c: c}
}

// Handler returns the HTTP handler with all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.Healthz)
	r.Get("/leader", s.GetLeader)
	r.Get("/nodes", s.ListNodes)
	r.Get("/nodes/{name}", s.GetNode)
	r.Get("/nodes/{name}/log", s.GetNodeLog)
	r.Post("/nodes/{name}/propose", s.Propose)
	r.Post("/nodes/{name}/stop", s.StopNode)
	r.Post("/nodes/{name}/fail", s.FailNode)
	return r
}

func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) GetLeader(w http.ResponseWriter, r *http.Request) {
	leader, err := s.c.Leader()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "no_leader", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, leader.Info())
}

func (s *Server) ListNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"nodes": s.c.Statuses()})
}

func (s *Server) GetNode(w http.ResponseWriter, r *http.Request) {
	n, err := s.c.Node(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, n.Info())
}

func (s *Server) GetNodeLog(w http.ResponseWriter, r *http.Request) {
	n, err := s.c.Node(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"log": n.Log()})
}

func (s *Server) Propose(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value string `json:"value"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Value == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "value is required")
		return
	}
	if err := s.c.Propose(chi.URLParam(r, "name"), body.Value); err != nil {
		writeNodeError(w, err)
		return
	}
	// Proposals are fire-and-forget: they may still be dropped by a
	// leaderless follower.
	writeJSON(w, http.StatusAccepted, map[string]bool{"accepted": true})
}

func (s *Server) StopNode(w http.ResponseWriter, r *http.Request) {
	if err := s.c.StopNode(chi.URLParam(r, "name")); err != nil {
		writeNodeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"stopped": true})
}

func (s *Server) FailNode(w http.ResponseWriter, r *http.Request) {
	if err := s.c.Fail(chi.URLParam(r, "name")); err != nil {
		writeNodeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"failed": true})
}

func writeNodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, cluster.ErrUnknownNode) {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal", err.Error())
}

// --- JSON helpers ---

func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": code, "message": msg})
}
