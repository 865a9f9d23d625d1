package alarm

import (
	"sync"

	"github.com/nerrad567/gray-logic-hmi/internal/monitor"
)

// Subsystem turns the transitions of one point list into State edges.
type Subsystem struct {
	kind Kind

	// points is indexed like the monitor's address list.
	points []Descriptor
	state  *State

	logger   Logger
	loggerMu sync.RWMutex
}

var _ monitor.Sink = (*Subsystem)(nil)

// NewSubsystem binds points, in address order, to state.
func NewSubsystem(kind Kind, points []Descriptor, state *State) *Subsystem {
	normalized := make([]Descriptor, len(points))
	for i, p := range points {
		normalized[i] = p.Normalize()
	}
	return &Subsystem{kind: kind, points: normalized, state: state}
}

// SetLogger sets the logger.
func (s *Subsystem) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	defer s.loggerMu.Unlock()
	s.logger = logger
}

// Kind returns the kind this subsystem raises.
func (s *Subsystem) Kind() Kind {
	return s.kind
}

// Baseline records nothing. Points already on at session start are not raised.
func (s *Subsystem) Baseline(current monitor.Snapshot) {
	s.logDebug("alarm: baseline", "kind", s.kind.Key(), "points", len(current))
}

// Apply raises or clears one record per boolean transition.
func (s *Subsystem) Apply(transitions []monitor.Transition, _ monitor.Snapshot) {
	for _, t := range transitions {
		if t.Index < 0 || t.Index >= len(s.points) {
			s.logDebug("alarm: transition outside configured points", "kind", s.kind.Key(), "index", t.Index)
			continue
		}
		on, ok := t.Current.(bool)
		if !ok {
			s.logDebug("alarm: ignoring non-boolean value", "kind", s.kind.Key(),
				"index", t.Index, "value", t.Current)
			continue
		}

		d := s.points[t.Index]
		if on {
			s.state.ApplyRising(s.kind, d, t.At)
		} else {
			s.state.ApplyFalling(d, t.At)
		}
	}
}

func (s *Subsystem) logDebug(msg string, args ...any) {
	s.loggerMu.RLock()
	logger := s.logger
	s.loggerMu.RUnlock()
	if logger != nil {
		logger.Debug(msg, args...)
	}
}
