package api

import (
	"net/http"
	"time"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if s.deps.Pool != nil {
		if err := s.deps.Pool.Ping(r.Context()); err != nil {
			dbStatus = "unreachable"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"database": dbStatus,
		"quota":    s.deps.Quota.Status(),
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
