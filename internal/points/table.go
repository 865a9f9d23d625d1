package points

import (
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-hmi/internal/monitor"
)

// Point is one configured slot of a table.
type Point struct {
	// Name is unique within its Group, e.g. "position".
	Name string `json:"name"`

	// Group collects related points, such as the axis "x" or the IO
	// direction "input". It may be empty.
	Group string `json:"group"`

	// Address is the controller variable read for this slot.
	Address string `json:"address"`
}

// Entry is a point with its last value.
type Entry struct {
	Point

	// Value is nil until the first read of the session.
	Value any `json:"value"`

	// UpdatedAt is when Value last changed, zero before the first read.
	UpdatedAt time.Time `json:"updated_at"`
}

// Change is one updated slot. Baseline reports every slot as a change with
// a nil Previous.
type Change struct {
	// Table is the name of the owning table.
	Table string `json:"table"`

	Name    string `json:"name"`
	Group   string `json:"group"`
	Address string `json:"address"`

	// Previous is the value before this change, Current the value after.
	Previous any `json:"previous"`
	Current  any `json:"current"`

	// At is the transition time, or the baseline time.
	At time.Time `json:"at"`
}

// Table is a named, ordered set of points and their values.
type Table struct {
	name   string
	points []Point

	// values and updated are indexed like points.
	mu        sync.RWMutex
	values    []any
	updated   []time.Time
	observers []func([]Change)
}

var _ monitor.Sink = (*Table)(nil)

// NewTable returns a table with no values yet.
func NewTable(name string, points []Point) *Table {
	p := make([]Point, len(points))
	copy(p, points)
	return &Table{
		name:    name,
		points:  p,
		values:  make([]any, len(p)),
		updated: make([]time.Time, len(p)),
	}
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Addresses returns the read list in slot order.
func (t *Table) Addresses() []string {
	out := make([]string, len(t.points))
	for i, p := range t.points {
		out[i] = p.Address
	}
	return out
}

// Len returns the number of points.
func (t *Table) Len() int {
	return len(t.points)
}

// Observe registers fn for every non-empty batch of changes.
func (t *Table) Observe(fn func([]Change)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
}

// Baseline sets every slot from current.
func (t *Table) Baseline(current monitor.Snapshot) {
	now := time.Now()

	t.mu.Lock()
	changes := make([]Change, 0, len(t.points))
	for i := range t.points {
		if i >= len(current) {
			break
		}
		changes = append(changes, t.setLocked(i, current[i], now))
	}
	observers := t.observers
	t.mu.Unlock()

	notify(observers, changes)
}

// Apply updates the slots named by transitions.
func (t *Table) Apply(transitions []monitor.Transition, _ monitor.Snapshot) {
	if len(transitions) == 0 {
		return
	}

	t.mu.Lock()
	changes := make([]Change, 0, len(transitions))
	for _, tr := range transitions {
		if tr.Index < 0 || tr.Index >= len(t.points) {
			continue
		}
		changes = append(changes, t.setLocked(tr.Index, tr.Current, tr.At))
	}
	observers := t.observers
	t.mu.Unlock()

	notify(observers, changes)
}

// setLocked stores v in slot i and returns the change. t.mu must be held.
func (t *Table) setLocked(i int, v any, at time.Time) Change {
	p := t.points[i]
	c := Change{
		Table:    t.name,
		Name:     p.Name,
		Group:    p.Group,
		Address:  p.Address,
		Previous: t.values[i],
		Current:  v,
		At:       at,
	}
	t.values[i] = v
	t.updated[i] = at
	return c
}

// Snapshot returns every point with its last value, in slot order.
func (t *Table) Snapshot() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, len(t.points))
	for i, p := range t.points {
		out[i] = Entry{Point: p, Value: t.values[i], UpdatedAt: t.updated[i]}
	}
	return out
}

// Value returns the last value of the named point in group.
func (t *Table) Value(group, name string) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i, p := range t.points {
		if p.Group == group && p.Name == name {
			return t.values[i], !t.updated[i].IsZero()
		}
	}
	return nil, false
}

// notify runs observers outside the lock; an empty batch is not reported.
func notify(observers []func([]Change), changes []Change) {
	if len(changes) == 0 {
		return
	}
	for _, fn := range observers {
		fn(changes)
	}
}
