package eventlog

import "strings"

// Kind filter values. Record.Kind holds "Alarm" or "Info"; matching ignores case.
const (
	KindAll   = "all"
	KindAlarm = "alarm"
	KindInfo  = "info"
)

// Filter narrows a day of records.
type Filter struct {
	// Kind is KindAll (or empty), KindAlarm or KindInfo.
	Kind string

	// Search is matched case-insensitively against type, content and station.
	Search string
}

func (f Filter) empty() bool {
	return (f.Kind == "" || strings.EqualFold(f.Kind, KindAll)) && strings.TrimSpace(f.Search) == ""
}

// Match reports whether r passes the filter.
func (f Filter) Match(r Record) bool {
	if f.Kind != "" && !strings.EqualFold(f.Kind, KindAll) && !strings.EqualFold(f.Kind, r.Kind) {
		return false
	}

	q := strings.ToLower(strings.TrimSpace(f.Search))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Kind), q) ||
		strings.Contains(strings.ToLower(r.Content), q) ||
		strings.Contains(strings.ToLower(r.Station), q)
}
