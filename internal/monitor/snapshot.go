package monitor

import (
	"reflect"
	"time"
)

// Snapshot is one batched read: one value per configured address, in
// configuration order.
type Snapshot []any

// Transition is a single slot whose value changed between two snapshots.
// Previous is nil when the slot did not exist in the previous snapshot.
type Transition struct {
	// Index is the slot, i.e. the position of the address in the loop's
	// address list.
	Index int

	// Previous and Current are the raw values read from the controller.
	Previous any
	Current  any

	// At is when the cycle that saw the change completed its read. Every
	// transition of one cycle carries the same At.
	At time.Time
}

// Rising reports whether the slot became true.
func (t Transition) Rising() bool {
	cur, ok := t.Current.(bool)
	if !ok || !cur {
		return false
	}
	prev, ok := t.Previous.(bool)
	return !ok || !prev
}

// Falling reports whether the slot became false.
func (t Transition) Falling() bool {
	cur, ok := t.Current.(bool)
	if !ok || cur {
		return false
	}
	prev, ok := t.Previous.(bool)
	return !ok || prev
}

// Diff compares two snapshots slot by slot and stamps transitions with the
// current time. See DiffAt.
func Diff(previous, current Snapshot) []Transition {
	return DiffAt(previous, current, time.Now())
}

// DiffAt returns one Transition per index of current whose value differs
// from previous, in ascending index order.
//
// An empty previous means there is no baseline yet and yields nothing.
// Indices past the end of previous count as changed. Indices past the end
// of current are ignored.
func DiffAt(previous, current Snapshot, at time.Time) []Transition {
	if len(previous) == 0 {
		return nil
	}

	var out []Transition
	for i, cur := range current {
		if i >= len(previous) {
			out = append(out, Transition{Index: i, Current: cur, At: at})
			continue
		}
		if !reflect.DeepEqual(previous[i], cur) {
			out = append(out, Transition{Index: i, Previous: previous[i], Current: cur, At: at})
		}
	}
	return out
}
