package monitor

import (
	"context"
	"errors"
	"time"

	"github.com/nerrad567/gray-logic-hmi/internal/plc"
)

// Default polling periods.
const (
	// DefaultActiveInterval is used while the owning view is visible.
	DefaultActiveInterval = 200 * time.Millisecond
	// DefaultIdleInterval is used while it is hidden.
	DefaultIdleInterval = 500 * time.Millisecond
)

// Skip reasons reported to Metrics.
const (
	// SkipNoAddresses: the loop has nothing to read.
	SkipNoAddresses = "no_addresses"
	// SkipGate: the Gate reported nothing new.
	SkipGate = "gate"
	// SkipReadFailed: the link was down or the batch read failed.
	SkipReadFailed = "read_failed"
	// SkipShapeMismatch: the batch did not return one value per address.
	SkipShapeMismatch = "shape_mismatch"
)

// Sink receives the results of a session. Both methods run on the
// Dispatcher goroutine.
type Sink interface {
	// Baseline is called with the first snapshot of a session.
	Baseline(current Snapshot)

	// Apply is called with the transitions between the previous snapshot
	// and current. transitions may be empty.
	Apply(transitions []Transition, current Snapshot)
}

// Gate decides whether a cycle should read its batch at all. Proceed is
// called before every read; Commit is called once the cycle's snapshot has
// been applied.
type Gate interface {
	// Proceed reports whether this cycle should read. A false return skips
	// the cycle without touching the baseline.
	Proceed(ctx context.Context) bool

	// Commit marks the value seen by the last Proceed as consumed. It is
	// not called when the apply never ran.
	Commit()
}

// resetter is implemented by gates that keep state across cycles. Run
// resets them so every session starts with a baseline read.
type resetter interface {
	Reset()
}

// Metrics receives loop observations. A nil Metrics is allowed.
type Metrics interface {
	// ObservePoll records one batch read and its outcome.
	ObservePoll(subsystem string, elapsed time.Duration, err error)

	// ObserveSkip records a cycle that did not reach Apply; reason is one
	// of the Skip constants.
	ObserveSkip(subsystem, reason string)

	// ObserveTransitions records how many slots changed in an applied cycle.
	ObserveTransitions(subsystem string, n int)
}

// Logger is the optional logging interface used by this package.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Loop is the configuration of one polling session. Run may be called
// again after it returns; each call starts a fresh session with no
// baseline.
type Loop struct {
	// Name identifies the subsystem in logs and metrics.
	Name string

	// Link is read once per cycle with the whole of Addresses.
	Link      plc.Link
	Addresses []string

	// ActiveInterval and IdleInterval are the cycle periods while IsActive
	// is true and false. Zero selects the defaults.
	ActiveInterval time.Duration
	IdleInterval   time.Duration

	// IsActive reports whether the owning view is visible. Nil means always.
	IsActive func() bool

	// Gate is optional. Sink is required and only ever called through
	// Dispatcher, which must be running.
	Gate       Gate
	Sink       Sink
	Dispatcher *Dispatcher

	// Metrics and Logger are optional.
	Metrics Metrics
	Logger  Logger
}

// Run polls until ctx is cancelled. Cancellation is not an error: Run
// returns nil and applies nothing after observing it.
func (l *Loop) Run(ctx context.Context) error {
	active, idle := l.intervals()
	var previous Snapshot
	if r, ok := l.Gate.(resetter); ok {
		r.Reset()
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		if !l.active() {
			if !sleep(ctx, idle) {
				return nil
			}
			continue
		}

		if !sleep(ctx, active) {
			return nil
		}

		current, ok := l.poll(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if !ok {
			continue
		}

		baseline := len(previous) == 0
		transitions := Diff(previous, current)

		err := l.dispatch(ctx, func() {
			if baseline {
				l.Sink.Baseline(current)
				return
			}
			l.Sink.Apply(transitions, current)
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.logWarn("monitor: apply failed", "error", err)
			if !errors.Is(err, ErrJobPanicked) {
				// The job never ran; retry against the old baseline.
				continue
			}
			// A job that panicked may have applied part of the batch.
			// Re-diffing against the old baseline would apply it twice.
		}

		if l.Gate != nil {
			l.Gate.Commit()
		}
		if l.Metrics != nil && !baseline {
			l.Metrics.ObserveTransitions(l.Name, len(transitions))
		}
		previous = current
	}
}

// poll performs one gated batch read. It returns false when the cycle
// should be skipped.
func (l *Loop) poll(ctx context.Context) (Snapshot, bool) {
	if len(l.Addresses) == 0 {
		l.skip(SkipNoAddresses)
		return nil, false
	}
	if l.Gate != nil && !l.Gate.Proceed(ctx) {
		l.skip(SkipGate)
		return nil, false
	}

	start := time.Now()
	values, err := l.Link.ReadBatch(ctx, l.Addresses)
	if ctx.Err() != nil {
		return nil, false
	}
	if l.Metrics != nil {
		l.Metrics.ObservePoll(l.Name, time.Since(start), err)
	}
	if err != nil {
		l.logDebug("monitor: read failed, skipping cycle", "error", err)
		l.skip(SkipReadFailed)
		return nil, false
	}
	if len(values) != len(l.Addresses) {
		l.logDebug("monitor: batch length mismatch, skipping cycle",
			"expected", len(l.Addresses), "got", len(values))
		l.skip(SkipShapeMismatch)
		return nil, false
	}
	return Snapshot(values), true
}

func (l *Loop) dispatch(ctx context.Context, fn func()) error {
	if l.Dispatcher != nil {
		return l.Dispatcher.Do(ctx, fn)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	fn()
	return nil
}

func (l *Loop) active() bool {
	return l.IsActive == nil || l.IsActive()
}

func (l *Loop) intervals() (active, idle time.Duration) {
	active, idle = l.ActiveInterval, l.IdleInterval
	if active <= 0 {
		active = DefaultActiveInterval
	}
	if idle <= 0 {
		idle = DefaultIdleInterval
	}
	return active, idle
}

func (l *Loop) skip(reason string) {
	if l.Metrics != nil {
		l.Metrics.ObserveSkip(l.Name, reason)
	}
}

func (l *Loop) logDebug(msg string, keysAndValues ...any) {
	if l.Logger != nil {
		l.Logger.Debug(msg, append([]any{"subsystem", l.Name}, keysAndValues...)...)
	}
}

func (l *Loop) logWarn(msg string, keysAndValues ...any) {
	if l.Logger != nil {
		l.Logger.Warn(msg, append([]any{"subsystem", l.Name}, keysAndValues...)...)
	}
}

// sleep waits for d or until ctx is done. It reports false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
