package api

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
)

// tableSummary describes one point table in GET /points.
type tableSummary struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// handleListTables lists the configured point tables.
func (s *Server) handleListTables(w http.ResponseWriter, _ *http.Request) {
	out := make([]tableSummary, 0, len(s.tables))
	for name, t := range s.tables {
		out = append(out, tableSummary{Name: name, Points: t.Len()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	writeJSON(w, http.StatusOK, map[string]any{"tables": out})
}

// handleGetTable returns every point of one table with its last value.
// Values are null until the table's session has taken its baseline.
func (s *Server) handleGetTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "table")
	t, ok := s.tables[name]
	if !ok {
		writeNotFound(w, "unknown point table "+name)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"table":   name,
		"entries": t.Snapshot(),
	})
}

// handleStatistics returns the latest production statistics.
func (s *Server) handleStatistics(w http.ResponseWriter, _ *http.Request) {
	if s.statistics == nil {
		writeUnavailable(w, "statistics not configured")
		return
	}
	st := s.statistics.Current()
	writeJSON(w, http.StatusOK, map[string]any{
		"statistics":   st,
		"availability": st.Availability(),
		"yield":        st.Yield(),
	})
}
