package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/stocktrack/backend/internal/models"
)

type alertRequest struct {
	Ticker         string   `json:"ticker"`
	UpperThreshold *float64 `json:"upperThreshold"`
	LowerThreshold *float64 `json:"lowerThreshold"`
	IsActive       *bool    `json:"isActive"`
}

func (req *alertRequest) validate() string {
	if req.UpperThreshold == nil && req.LowerThreshold == nil {
		return "at least one threshold is required"
	}
	if req.UpperThreshold != nil && *req.UpperThreshold <= 0 {
		return "upperThreshold must be positive"
	}
	if req.LowerThreshold != nil && *req.LowerThreshold <= 0 {
		return "lowerThreshold must be positive"
	}
	if req.UpperThreshold != nil && req.LowerThreshold != nil && *req.LowerThreshold >= *req.UpperThreshold {
		return "lowerThreshold must be below upperThreshold"
	}
	return ""
}

func (s *Server) handleAlertList(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	alerts, err := s.deps.Alerts.ListByUser(r.Context(), user.ID)
	if err != nil {
		fmt.Printf("[API] Alert list error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to load alerts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (s *Server) handleAlertAdd(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	var req alertRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ticker := strings.ToUpper(strings.TrimSpace(req.Ticker))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	alert := &models.PriceAlert{
		UserID:         user.ID,
		Ticker:         ticker,
		UpperThreshold: req.UpperThreshold,
		LowerThreshold: req.LowerThreshold,
		IsActive:       true,
	}
	created, err := s.deps.Alerts.Add(r.Context(), alert)
	if err != nil {
		fmt.Printf("[API] Alert add error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to add alert")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleAlertUpdate(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	id := r.PathValue("id")

	var req alertRequest
	if !decodeBody(w, r, &req) {
		return
	}

	// An isActive-only body toggles the alert without touching its
	// thresholds; carry the stored ones forward.
	if req.UpperThreshold == nil && req.LowerThreshold == nil {
		if req.IsActive == nil {
			writeError(w, http.StatusBadRequest, "at least one threshold or isActive is required")
			return
		}
		existing, err := s.deps.Alerts.Get(r.Context(), id, user.ID)
		if err != nil {
			fmt.Printf("[API] Alert lookup error: %v\n", err)
			writeError(w, http.StatusInternalServerError, "failed to load alert")
			return
		}
		if existing == nil {
			writeError(w, http.StatusNotFound, "alert not found")
			return
		}
		req.UpperThreshold = existing.UpperThreshold
		req.LowerThreshold = existing.LowerThreshold
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	alert := &models.PriceAlert{
		ID:             id,
		UserID:         user.ID,
		UpperThreshold: req.UpperThreshold,
		LowerThreshold: req.LowerThreshold,
		IsActive:       active,
	}
	updated, err := s.deps.Alerts.Update(r.Context(), alert)
	if err != nil {
		fmt.Printf("[API] Alert update error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to update alert")
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleAlertRemove(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	id := r.PathValue("id")

	removed, err := s.deps.Alerts.Remove(r.Context(), id, user.ID)
	if err != nil {
		fmt.Printf("[API] Alert remove error: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to remove alert")
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
