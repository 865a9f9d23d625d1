package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-hmi/internal/production"
)

const monthLayout = "2006-01"

// seriesResponse is the body of the daily and monthly production routes.
type seriesResponse struct {
	Period string `json:"period"`
	production.Series
}

// recordFile is one entry of GET /production/records.
type recordFile struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// handleProductionDaily returns the hourly OK/NG series of one day.
//
// Query parameters:
//   - date: YYYY-MM-DD (default today)
func (s *Server) handleProductionDaily(w http.ResponseWriter, r *http.Request) {
	if s.production == nil {
		writeUnavailable(w, "production data not configured")
		return
	}

	day := time.Now().In(s.location())
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.ParseInLocation(dateLayout, v, s.location())
		if err != nil {
			writeBadRequest(w, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	series, err := s.production.Day(r.Context(), day)
	if err != nil {
		s.logger.Warn("reading daily production failed", "date", day.Format(dateLayout), "error", err)
		writeUnavailable(w, "production data could not be read")
		return
	}
	writeJSON(w, http.StatusOK, seriesResponse{Period: day.Format(dateLayout), Series: series})
}

// handleProductionMonthly returns the daily OK/NG series of one month.
//
// Query parameters:
//   - month: YYYY-MM (default this month)
func (s *Server) handleProductionMonthly(w http.ResponseWriter, r *http.Request) {
	if s.production == nil {
		writeUnavailable(w, "production data not configured")
		return
	}

	month := time.Now().In(s.location())
	if v := r.URL.Query().Get("month"); v != "" {
		parsed, err := time.ParseInLocation(monthLayout, v, s.location())
		if err != nil {
			writeBadRequest(w, "month must be YYYY-MM")
			return
		}
		month = parsed
	}

	series, err := s.production.Month(r.Context(), month)
	if err != nil {
		s.logger.Warn("reading monthly production failed", "month", month.Format(monthLayout), "error", err)
		writeUnavailable(w, "production data could not be read")
		return
	}
	writeJSON(w, http.StatusOK, seriesResponse{Period: month.Format(monthLayout), Series: series})
}

// handleRecordFiles lists the record files that exist. Only base names are
// returned; files are addressed by index.
func (s *Server) handleRecordFiles(w http.ResponseWriter, _ *http.Request) {
	if s.production == nil {
		writeUnavailable(w, "production data not configured")
		return
	}

	files := s.production.Files()
	out := make([]recordFile, len(files))
	for i, f := range files {
		out[i] = recordFile{Index: i, Name: filepath.Base(f)}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": out, "count": len(out)})
}

// handleRecordFile returns one record file as header plus rows.
func (s *Server) handleRecordFile(w http.ResponseWriter, r *http.Request) {
	if s.production == nil {
		writeUnavailable(w, "production data not configured")
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeBadRequest(w, "index must be an integer")
		return
	}

	tbl, err := s.production.Records(r.Context(), index)
	switch {
	case errors.Is(err, production.ErrUnknownRecordFile):
		writeNotFound(w, "record file not found")
		return
	case err != nil:
		s.logger.Warn("reading record file failed", "index", index, "error", err)
		writeUnavailable(w, "record file could not be read")
		return
	}
	writeJSON(w, http.StatusOK, tbl)
}
