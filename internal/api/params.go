package api

import (
	"fmt"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// parseTimeParam accepts RFC 3339 or a bare date, which means midnight in
// loc. An empty value returns the zero time.
func parseTimeParam(v string, loc *time.Location) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, v, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("want RFC 3339 or %s", dateLayout)
	}
	return t, nil
}

// parseIntParam parses a non-negative integer. An empty value returns 0.
func parseIntParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

// location is the zone used for bare dates: the event log's when configured.
func (s *Server) location() *time.Location {
	if s.eventLog != nil {
		if loc := s.eventLog.Location(); loc != nil {
			return loc
		}
	}
	return time.Local
}
