package points

import (
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-hmi/internal/monitor"
)

func ioPoints() []Point {
	return []Point{
		{Name: "Door switch", Group: "input", Address: "GVL.X0"},
		{Name: "Vacuum ok", Group: "input", Address: "GVL.X1"},
		{Name: "Lamp", Group: "output", Address: "GVL.Y0"},
	}
}

func TestTable_BaselineThenApply(t *testing.T) {
	tbl := NewTable("io", ioPoints())

	var batches [][]Change
	tbl.Observe(func(c []Change) { batches = append(batches, c) })

	tbl.Baseline(monitor.Snapshot{false, true, false})
	if len(batches) != 1 || len(batches[0]) != 3 {
		t.Fatalf("baseline batches = %v", batches)
	}
	if batches[0][1].Previous != nil || batches[0][1].Current != true {
		t.Errorf("baseline change = %+v", batches[0][1])
	}

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tbl.Apply([]monitor.Transition{{Index: 2, Previous: false, Current: true, At: at}}, monitor.Snapshot{false, true, true})

	if len(batches) != 2 || len(batches[1]) != 1 {
		t.Fatalf("apply batches = %v", batches)
	}
	c := batches[1][0]
	if c.Table != "io" || c.Name != "Lamp" || c.Group != "output" || c.Previous != false || c.Current != true {
		t.Errorf("change = %+v", c)
	}

	snap := tbl.Snapshot()
	if snap[2].Value != true || !snap[2].UpdatedAt.Equal(at) {
		t.Errorf("snapshot[2] = %+v", snap[2])
	}
	if snap[0].Value != false || snap[0].UpdatedAt.IsZero() {
		t.Errorf("snapshot[0] = %+v", snap[0])
	}
}

func TestTable_ApplyWithoutChangesIsSilent(t *testing.T) {
	tbl := NewTable("io", ioPoints())
	calls := 0
	tbl.Observe(func([]Change) { calls++ })

	tbl.Apply(nil, monitor.Snapshot{false, false, false})
	tbl.Apply([]monitor.Transition{{Index: 9, Current: true}}, nil)

	if calls != 0 {
		t.Errorf("observer calls = %d, want 0", calls)
	}
}

func TestTable_Value(t *testing.T) {
	tbl := NewTable("io", ioPoints())

	if _, ok := tbl.Value("input", "Vacuum ok"); ok {
		t.Error("Value() before baseline should report not set")
	}

	tbl.Baseline(monitor.Snapshot{false, true, false})
	v, ok := tbl.Value("input", "Vacuum ok")
	if !ok || v != true {
		t.Errorf("Value() = %v, %v", v, ok)
	}
	if _, ok := tbl.Value("output", "Vacuum ok"); ok {
		t.Error("Value() should match on group too")
	}
}

func TestTable_Addresses(t *testing.T) {
	tbl := NewTable("io", ioPoints())
	got := tbl.Addresses()
	want := []string{"GVL.X0", "GVL.X1", "GVL.Y0"}
	if len(got) != len(want) {
		t.Fatalf("Addresses() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Addresses()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if tbl.Len() != 3 || tbl.Name() != "io" {
		t.Errorf("Len/Name = %d/%q", tbl.Len(), tbl.Name())
	}
}
