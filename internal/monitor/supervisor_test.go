package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// taggedLink records which session issued each read and how many reads
// are in flight at once.
type taggedLink struct {
	tag      string
	rec      *readRecorder
	duration time.Duration
}

type readRecorder struct {
	mu       sync.Mutex
	order    []string
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (l *taggedLink) ReadBatch(ctx context.Context, addresses []string) ([]any, error) {
	n := l.rec.inFlight.Add(1)
	defer l.rec.inFlight.Add(-1)
	for {
		cur := l.rec.maxSeen.Load()
		if n <= cur || l.rec.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}

	l.rec.mu.Lock()
	l.rec.order = append(l.rec.order, l.tag)
	l.rec.mu.Unlock()

	select {
	case <-time.After(l.duration):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	out := make([]any, len(addresses))
	for i := range out {
		out[i] = false
	}
	return out, nil
}

func (l *taggedLink) IsConnected() bool { return true }

func (r *readRecorder) count(tag string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.order {
		if t == tag {
			n++
		}
	}
	return n
}

func TestSupervisor_AtMostOneSession(t *testing.T) {
	rec := &readRecorder{}
	newLoop := func(tag string) *Loop {
		return &Loop{
			Name:           "alarm",
			Link:           &taggedLink{tag: tag, rec: rec, duration: 2 * time.Millisecond},
			Addresses:      []string{"A"},
			ActiveInterval: time.Millisecond,
			Sink:           &recordingSink{},
		}
	}

	sup := NewSupervisor()
	defer sup.StopAll()

	sup.Start(context.Background(), "alarm", newLoop("first"))
	waitFor(t, "first session reads", func() bool { return rec.count("first") >= 3 })

	sup.Start(context.Background(), "alarm", newLoop("second"))
	firstReads := rec.count("first")
	waitFor(t, "second session reads", func() bool { return rec.count("second") >= 3 })

	if got := rec.count("first"); got != firstReads {
		t.Errorf("first session read %d more times after being replaced", got-firstReads)
	}
	if got := rec.maxSeen.Load(); got != 1 {
		t.Errorf("max concurrent reads = %d, want 1", got)
	}

	rec.mu.Lock()
	seenSecond := false
	for _, tag := range rec.order {
		if tag == "second" {
			seenSecond = true
		} else if seenSecond {
			t.Errorf("read from first session after second started: %v", rec.order)
			break
		}
	}
	rec.mu.Unlock()

	if names := sup.Names(); len(names) != 1 || names[0] != "alarm" {
		t.Errorf("Names() = %v, want [alarm]", names)
	}
}

type blockingRunner struct {
	started chan struct{}
	exited  atomic.Bool
}

func (r *blockingRunner) Run(ctx context.Context) error {
	close(r.started)
	<-ctx.Done()
	time.Sleep(5 * time.Millisecond)
	r.exited.Store(true)
	return nil
}

func TestSupervisor_StartWaitsForPrevious(t *testing.T) {
	sup := NewSupervisor()
	defer sup.StopAll()

	old := &blockingRunner{started: make(chan struct{})}
	sup.Start(context.Background(), "io", old)
	<-old.started

	next := &blockingRunner{started: make(chan struct{})}
	sup.Start(context.Background(), "io", next)
	if !old.exited.Load() {
		t.Error("Start returned before the previous session exited")
	}
	<-next.started
	if !sup.Running("io") {
		t.Error("Running(io) = false for the new session")
	}
}

func TestSupervisor_StopAndStopAll(t *testing.T) {
	sup := NewSupervisor()

	a := &blockingRunner{started: make(chan struct{})}
	b := &blockingRunner{started: make(chan struct{})}
	sup.Start(context.Background(), "a", a)
	sup.Start(context.Background(), "b", b)
	<-a.started
	<-b.started

	sup.Stop("a")
	if !a.exited.Load() || sup.Running("a") {
		t.Error("Stop(a) did not wait for the session")
	}
	sup.Stop("missing")

	sup.StopAll()
	if !b.exited.Load() {
		t.Error("StopAll did not wait for remaining sessions")
	}
	if len(sup.Names()) != 0 {
		t.Errorf("Names() after StopAll = %v", sup.Names())
	}
}

func TestSupervisor_ParentCancelEndsSession(t *testing.T) {
	sup := NewSupervisor()
	ctx, cancel := context.WithCancel(context.Background())

	r := &blockingRunner{started: make(chan struct{})}
	sup.Start(ctx, "stats", r)
	<-r.started
	cancel()

	waitFor(t, "session exit", func() bool { return !sup.Running("stats") })
}
