package alarm

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type recordingHandler struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (h *recordingHandler) HandleEvent(_ context.Context, ev Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	return h.err
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}

func TestNotifier_DeliversToAllHandlers(t *testing.T) {
	n := NewNotifier(8)
	logger := &mockLogger{}
	n.SetLogger(logger)

	failing := &recordingHandler{err: errors.New("broker down")}
	ok := &recordingHandler{}
	n.Register("mqtt", failing)
	n.Register("history", ok)

	state := NewState(nil)
	state.Observe(n.Notify)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()

	state.ApplyRising(KindAlarm, doorOpen, t0)
	state.ApplyFalling(doorOpen, t0)

	waitFor(t, "delivery", func() bool { return ok.count() == 2 })
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if failing.count() != 2 {
		t.Errorf("failing handler calls = %d, want 2", failing.count())
	}
	if _, warns, _ := logger.counts(); warns != 2 {
		t.Errorf("warn logs = %d, want 2", warns)
	}
}

func TestNotifier_DropsWhenFull(t *testing.T) {
	n := NewNotifier(1)
	n.Notify(Event{Type: EventRaised})
	n.Notify(Event{Type: EventRaised})

	if n.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", n.Dropped())
	}
}

func TestNotifier_DrainsOnStop(t *testing.T) {
	n := NewNotifier(4)
	h := &recordingHandler{}
	n.Register("history", h)

	n.Notify(Event{Type: EventRaised})
	n.Notify(Event{Type: EventCleared})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := n.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if h.count() != 2 {
		t.Errorf("delivered = %d, want queued events drained", h.count())
	}

	if err := n.Run(context.Background()); !errors.Is(err, ErrNotifierStopped) {
		t.Errorf("second Run() error = %v, want ErrNotifierStopped", err)
	}
}

func TestHandlerFunc(t *testing.T) {
	var got EventType
	h := HandlerFunc(func(_ context.Context, ev Event) error {
		got = ev.Type
		return nil
	})
	if err := h.HandleEvent(context.Background(), Event{Type: EventCleared}); err != nil {
		t.Fatal(err)
	}
	if got != EventCleared {
		t.Errorf("got %q", got)
	}
}
