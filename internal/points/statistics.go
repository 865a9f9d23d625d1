package points

import (
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-hmi/internal/monitor"
	"github.com/nerrad567/gray-logic-hmi/internal/plc"
)

// StatisticsAddresses are the controller counters, in read order.
type StatisticsAddresses struct {
	RunningTime     string `yaml:"running_time"`
	PauseTime       string `yaml:"pause_time"`
	AlarmTime       string `yaml:"alarm_time"`
	DownTime        string `yaml:"down_time"`
	ProductionTotal string `yaml:"production_total"`
	NGCount         string `yaml:"ng_count"`
}

// List returns the configured addresses in read order. It is empty when
// any address is missing.
func (a StatisticsAddresses) List() []string {
	list := []string{a.RunningTime, a.PauseTime, a.AlarmTime, a.DownTime, a.ProductionTotal, a.NGCount}
	for _, s := range list {
		if s == "" {
			return nil
		}
	}
	return list
}

// Statistics is the production summary. Times are in the controller's unit.
type Statistics struct {
	// RunningTime, PauseTime, AlarmTime and DownTime split the shift into
	// the machine's four states.
	RunningTime float64 `json:"running_time"`
	PauseTime   float64 `json:"pause_time"`
	AlarmTime   float64 `json:"alarm_time"`
	DownTime    float64 `json:"down_time"`

	// Total is the parts produced; NG the rejected ones.
	Total int64 `json:"total"`
	NG    int64 `json:"ng"`

	// OK is Total minus NG, never negative.
	OK int64 `json:"ok"`

	// UpdatedAt is when the values were last recomputed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Availability is running time over all accounted time, or 0.
func (s Statistics) Availability() float64 {
	sum := s.RunningTime + s.PauseTime + s.AlarmTime + s.DownTime
	if sum <= 0 {
		return 0
	}
	return s.RunningTime / sum
}

// Yield is OK over total, or 0.
func (s Statistics) Yield() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.OK) / float64(s.Total)
}

// StatisticsSink rebuilds Statistics from every applied snapshot.
type StatisticsSink struct {
	mu        sync.RWMutex
	current   Statistics
	observers []func(Statistics)
}

var _ monitor.Sink = (*StatisticsSink)(nil)

// NewStatisticsSink returns an empty sink.
func NewStatisticsSink() *StatisticsSink {
	return &StatisticsSink{}
}

// Observe registers fn for every update.
func (s *StatisticsSink) Observe(fn func(Statistics)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Baseline computes the first statistics.
func (s *StatisticsSink) Baseline(current monitor.Snapshot) {
	s.update(current)
}

// Apply recomputes the statistics when anything changed.
func (s *StatisticsSink) Apply(transitions []monitor.Transition, current monitor.Snapshot) {
	if len(transitions) == 0 {
		return
	}
	s.update(current)
}

// Current returns the latest statistics.
func (s *StatisticsSink) Current() Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// update recomputes from a snapshot in StatisticsAddresses.List order. A
// short snapshot is ignored; unreadable values count as zero.
func (s *StatisticsSink) update(snap monitor.Snapshot) {
	if len(snap) < 6 {
		return
	}
	st := Statistics{UpdatedAt: time.Now()}
	st.RunningTime, _ = plc.ToFloat(snap[0])
	st.PauseTime, _ = plc.ToFloat(snap[1])
	st.AlarmTime, _ = plc.ToFloat(snap[2])
	st.DownTime, _ = plc.ToFloat(snap[3])
	st.Total, _ = plc.ToInt(snap[4])
	st.NG, _ = plc.ToInt(snap[5])
	st.OK = st.Total - st.NG
	if st.OK < 0 {
		st.OK = 0
	}

	s.mu.Lock()
	s.current = st
	observers := s.observers
	s.mu.Unlock()

	for _, fn := range observers {
		fn(st)
	}
}
