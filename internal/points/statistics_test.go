package points

import (
	"testing"

	"github.com/nerrad567/gray-logic-hmi/internal/monitor"
)

func TestStatisticsAddresses_List(t *testing.T) {
	full := StatisticsAddresses{
		RunningTime: "a", PauseTime: "b", AlarmTime: "c",
		DownTime: "d", ProductionTotal: "e", NGCount: "f",
	}
	if got := full.List(); len(got) != 6 || got[4] != "e" {
		t.Errorf("List() = %v", got)
	}

	partial := full
	partial.NGCount = ""
	if got := partial.List(); got != nil {
		t.Errorf("List() with a missing address = %v, want nil", got)
	}
}

func TestStatisticsSink(t *testing.T) {
	s := NewStatisticsSink()
	var updates []Statistics
	s.Observe(func(st Statistics) { updates = append(updates, st) })

	s.Baseline(monitor.Snapshot{float32(300), int32(60), int32(30), int32(10), int32(1000), int32(25)})

	st := s.Current()
	if st.Total != 1000 || st.NG != 25 || st.OK != 975 {
		t.Errorf("counts = %+v", st)
	}
	if st.RunningTime != 300 || st.DownTime != 10 {
		t.Errorf("times = %+v", st)
	}
	if got := st.Availability(); got != 0.75 {
		t.Errorf("Availability() = %v, want 0.75", got)
	}
	if got := st.Yield(); got != 0.975 {
		t.Errorf("Yield() = %v, want 0.975", got)
	}

	s.Apply(nil, monitor.Snapshot{float32(300), int32(60), int32(30), int32(10), int32(1000), int32(25)})
	if len(updates) != 1 {
		t.Errorf("updates = %d, want 1 (no change, no update)", len(updates))
	}

	s.Apply([]monitor.Transition{{Index: 5}}, monitor.Snapshot{0, 0, 0, 0, int16(10), int16(12)})
	if got := s.Current(); got.OK != 0 {
		t.Errorf("OK = %d, want clamped to 0", got.OK)
	}
	if len(updates) != 2 {
		t.Errorf("updates = %d, want 2", len(updates))
	}
}

func TestStatistics_ZeroSafe(t *testing.T) {
	var st Statistics
	if st.Availability() != 0 || st.Yield() != 0 {
		t.Error("zero statistics should report 0 ratios")
	}
}
