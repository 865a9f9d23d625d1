package alarm

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-hmi/internal/eventlog"
)

// Journal persists edges. *eventlog.Log implements it.
type Journal interface {
	// AppendOn writes rec to the file of day.
	AppendOn(day time.Time, rec eventlog.Record) error
}

// Logger is the optional logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// State is the active alarm and info list, most recent first.
type State struct {
	// mu serialises writers and guards observers. Readers use active only.
	mu        sync.Mutex
	active    atomic.Pointer[[]Record]
	journal   Journal
	observers []func(Event)

	journalFailures atomic.Uint64

	logger   Logger
	loggerMu sync.RWMutex
}

// NewState returns an empty State. journal may be nil.
func NewState(journal Journal) *State {
	s := &State{journal: journal}
	empty := []Record{}
	s.active.Store(&empty)
	return s
}

// SetLogger sets the logger.
func (s *State) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	defer s.loggerMu.Unlock()
	s.logger = logger
}

// Observe registers fn to be called after every applied edge. fn runs on
// the writer's goroutine and must not block.
func (s *State) Observe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// ApplyRising puts a new active record at the front of the list and
// journals it. The ID is the list length after insertion.
func (s *State) ApplyRising(kind Kind, d Descriptor, at time.Time) Record {
	d = d.Normalize()

	s.mu.Lock()
	cur := *s.active.Load()
	rec := Record{
		ID:       len(cur) + 1,
		Kind:     kind,
		Message:  d.Message,
		Station:  d.Station,
		RaisedAt: at,
		Active:   true,
	}
	next := make([]Record, 0, len(cur)+1)
	next = append(next, rec)
	next = append(next, cur...)
	s.active.Store(&next)

	s.journalLocked(rec, at)
	observers := s.observers
	s.mu.Unlock()

	notify(observers, Event{Type: EventRaised, Record: rec, At: at, ActiveCount: len(next)})
	return rec
}

// ApplyFalling removes the first active record whose message and station
// equal d and journals it as inactive. It reports false when nothing
// matched; that is not an error.
func (s *State) ApplyFalling(d Descriptor, at time.Time) (Record, bool) {
	d = d.Normalize()

	s.mu.Lock()
	cur := *s.active.Load()
	idx := -1
	for i := range cur {
		if cur[i].matches(d) {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		s.logDebug("alarm: falling edge without active record",
			"message", d.Message, "station", d.Station)
		return Record{}, false
	}

	rec := cur[idx]
	rec.Active = false
	next := make([]Record, 0, len(cur)-1)
	next = append(next, cur[:idx]...)
	next = append(next, cur[idx+1:]...)
	s.active.Store(&next)

	s.journalLocked(rec, at)
	observers := s.observers
	s.mu.Unlock()

	notify(observers, Event{Type: EventCleared, Record: rec, At: at, ActiveCount: len(next)})
	return rec, true
}

// Snapshot returns a copy of the active list, most recent first.
func (s *State) Snapshot() []Record {
	cur := *s.active.Load()
	out := make([]Record, len(cur))
	copy(out, cur)
	return out
}

// Count returns the number of active records.
func (s *State) Count() int {
	return len(*s.active.Load())
}

// CountKind returns the number of active records of one kind.
func (s *State) CountKind(kind Kind) int {
	n := 0
	for _, r := range *s.active.Load() {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

// JournalFailures returns how many journal appends have failed.
func (s *State) JournalFailures() uint64 {
	return s.journalFailures.Load()
}

// journalLocked writes one line to the file of day at. The time column is
// always the raise time, for clear lines too. A failure is logged and
// counted; the in-memory change stands.
func (s *State) journalLocked(rec Record, at time.Time) {
	if s.journal == nil {
		return
	}
	err := s.journal.AppendOn(at, eventlog.Record{
		ID:      rec.ID,
		Kind:    rec.Kind.String(),
		Content: rec.Message,
		Station: rec.Station,
		Time:    rec.RaisedAt,
		Active:  rec.Active,
	})
	if err != nil {
		s.journalFailures.Add(1)
		s.logError("alarm: event log append failed", err, "id", rec.ID, "message", rec.Message)
	}
}

func notify(observers []func(Event), ev Event) {
	for _, fn := range observers {
		fn(ev)
	}
}

func (s *State) logDebug(msg string, args ...any) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()
	if logger != nil {
		logger.Debug(msg, args...)
	}
}

func (s *State) logError(msg string, err error, args ...any) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()
	if logger != nil {
		logger.Error(msg, append(args, "error", err)...)
	}
}
