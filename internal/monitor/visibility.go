package monitor

import (
	"fmt"
	"sync"
)

// Visibility tracks which HMI view is on screen. Loops for hidden views
// idle instead of reading.
type Visibility struct {
	mu        sync.RWMutex
	known     map[string]bool
	current   string
	observers []func(view string)
}

// NewVisibility registers the views that may be shown. No view is visible
// initially.
func NewVisibility(views ...string) *Visibility {
	known := make(map[string]bool, len(views))
	for _, v := range views {
		known[v] = true
	}
	return &Visibility{known: known}
}

// Set makes view the visible one. An empty view hides everything.
func (v *Visibility) Set(view string) error {
	v.mu.Lock()
	if view != "" && !v.known[view] {
		v.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownView, view)
	}
	changed := v.current != view
	v.current = view
	observers := append([]func(string){}, v.observers...)
	v.mu.Unlock()

	if changed {
		for _, fn := range observers {
			fn(view)
		}
	}
	return nil
}

// Current returns the visible view, or "".
func (v *Visibility) Current() string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Views returns the registered view names.
func (v *Visibility) Views() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]string, 0, len(v.known))
	for name := range v.known {
		out = append(out, name)
	}
	return out
}

// IsActive returns a predicate for Loop.IsActive that is true while view
// is visible.
func (v *Visibility) IsActive(view string) func() bool {
	return func() bool {
		return v.Current() == view
	}
}

// OnChange registers fn to be called after the visible view changes.
func (v *Visibility) OnChange(fn func(view string)) {
	v.mu.Lock()
	v.observers = append(v.observers, fn)
	v.mu.Unlock()
}

// Always is a Loop.IsActive predicate for sessions that never idle.
func Always() bool { return true }
