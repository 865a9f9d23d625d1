package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/nerrad567/gray-logic-hmi/internal/audit"
	"github.com/nerrad567/gray-logic-hmi/internal/monitor"
)

// setViewRequest is the body of PUT /views/active. An empty view hides
// every view and lets their sessions idle.
type setViewRequest struct {
	View string `json:"view"`
}

// handleGetViews returns the known views and the visible one.
func (s *Server) handleGetViews(w http.ResponseWriter, _ *http.Request) {
	if s.visibility == nil {
		writeUnavailable(w, "view tracking not configured")
		return
	}
	views := s.visibility.Views()
	sort.Strings(views)
	writeJSON(w, http.StatusOK, map[string]any{
		"views":  views,
		"active": s.visibility.Current(),
	})
}

// handleSetView records which view the operator panel shows. Sessions of
// hidden views poll at their idle interval.
func (s *Server) handleSetView(w http.ResponseWriter, r *http.Request) {
	if s.visibility == nil {
		writeUnavailable(w, "view tracking not configured")
		return
	}

	var req setViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	previous := s.visibility.Current()
	if err := s.visibility.Set(req.View); err != nil {
		if errors.Is(err, monitor.ErrUnknownView) {
			writeValidation(w, "unknown view "+req.View)
			return
		}
		writeInternalError(w, "failed to set view")
		return
	}

	if previous != req.View {
		claims := claimsFromContext(r.Context())
		s.auditLog(audit.ActionViewChange, audit.EntityView, req.View, claims.Subject, map[string]any{
			"previous": previous,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"active": req.View})
}
