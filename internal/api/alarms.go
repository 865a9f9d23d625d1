package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-hmi/internal/alarm"
	"github.com/nerrad567/gray-logic-hmi/internal/eventlog"
)

// activeResponse is the body of GET /alarms/active.
type activeResponse struct {
	Count   int            `json:"count"`
	Alarms  int            `json:"alarms"`
	Infos   int            `json:"infos"`
	Records []alarm.Record `json:"records"`
}

// handleActiveAlarms returns the active list, newest first.
func (s *Server) handleActiveAlarms(w http.ResponseWriter, _ *http.Request) {
	records := s.alarms.Snapshot()
	if records == nil {
		records = []alarm.Record{}
	}
	writeJSON(w, http.StatusOK, activeResponse{
		Count:   len(records),
		Alarms:  s.alarms.CountKind(alarm.KindAlarm),
		Infos:   s.alarms.CountKind(alarm.KindInfo),
		Records: records,
	})
}

// handleEventLog returns one day of the event log, newest first.
//
// Query parameters:
//   - date: YYYY-MM-DD (default today)
//   - kind: all, alarm or info (default all)
//   - search: case-insensitive match on type, content and station
func (s *Server) handleEventLog(w http.ResponseWriter, r *http.Request) {
	if s.eventLog == nil {
		writeUnavailable(w, "event log not configured")
		return
	}

	q := r.URL.Query()
	loc := s.location()

	day := time.Now().In(loc)
	if v := q.Get("date"); v != "" {
		parsed, err := time.ParseInLocation(dateLayout, v, loc)
		if err != nil {
			writeBadRequest(w, "date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	filter := eventlog.Filter{Kind: q.Get("kind"), Search: q.Get("search")}
	switch strings.ToLower(filter.Kind) {
	case "", eventlog.KindAll, eventlog.KindAlarm, eventlog.KindInfo:
	default:
		writeBadRequest(w, "kind must be all, alarm or info")
		return
	}

	records := s.eventLog.Query(r.Context(), day, filter)
	if records == nil {
		records = []eventlog.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":    day.Format(dateLayout),
		"count":   len(records),
		"records": records,
	})
}

// handleEventLogDays lists the days that have a log file, newest first.
func (s *Server) handleEventLogDays(w http.ResponseWriter, _ *http.Request) {
	if s.eventLog == nil {
		writeUnavailable(w, "event log not configured")
		return
	}

	days, err := s.eventLog.Days()
	if err != nil {
		s.logger.Error("listing event log days failed", "error", err)
		writeInternalError(w, "failed to list event log days")
		return
	}

	out := make([]string, len(days))
	for i, d := range days {
		out[i] = d.Format(dateLayout)
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": out})
}

// handleAlarmHistory queries mirrored edges.
//
// Query parameters:
//   - from, to: RFC 3339 or YYYY-MM-DD bounds
//   - kind: alarm or info
//   - station: exact station name
//   - limit: max results (default 200, max 5000)
func (s *Server) handleAlarmHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "alarm history not configured")
		return
	}

	q := r.URL.Query()
	from, to, ok := s.parseRange(w, r)
	if !ok {
		return
	}

	query := alarm.HistoryQuery{From: from, To: to, Station: q.Get("station")}
	if v := q.Get("kind"); v != "" && !strings.EqualFold(v, eventlog.KindAll) {
		kind, err := alarm.ParseKind(v)
		if err != nil {
			writeBadRequest(w, "kind must be alarm or info")
			return
		}
		query.Kind = &kind
	}

	limit, err := parseIntParam(q.Get("limit"))
	if err != nil {
		writeBadRequest(w, "invalid limit")
		return
	}
	query.Limit = limit

	entries, err := s.history.List(r.Context(), query)
	if err != nil {
		s.logger.Error("listing alarm history failed", "error", err)
		writeInternalError(w, "failed to list alarm history")
		return
	}
	if entries == nil {
		entries = []alarm.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(entries),
		"entries": entries,
	})
}

// handleStationCounts returns raised edges per station within from..to.
func (s *Server) handleStationCounts(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "alarm history not configured")
		return
	}

	from, to, ok := s.parseRange(w, r)
	if !ok {
		return
	}

	counts, err := s.history.StationCounts(r.Context(), from, to)
	if err != nil {
		s.logger.Error("counting stations failed", "error", err)
		writeInternalError(w, "failed to count stations")
		return
	}
	if counts == nil {
		counts = []alarm.StationCount{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"stations": counts})
}

// parseRange reads the from and to parameters. It writes the error response
// and returns false on invalid input.
func (s *Server) parseRange(w http.ResponseWriter, r *http.Request) (from, to time.Time, ok bool) {
	q := r.URL.Query()
	loc := s.location()

	var err error
	if from, err = parseTimeParam(q.Get("from"), loc); err != nil {
		writeBadRequest(w, "invalid from: "+err.Error())
		return time.Time{}, time.Time{}, false
	}
	if to, err = parseTimeParam(q.Get("to"), loc); err != nil {
		writeBadRequest(w, "invalid to: "+err.Error())
		return time.Time{}, time.Time{}, false
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		writeBadRequest(w, "to is before from")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}
