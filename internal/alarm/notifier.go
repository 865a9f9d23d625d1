package alarm

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultQueueSize = 256

// Handler consumes edges off the dispatcher goroutine.
type Handler interface {
	HandleEvent(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev Event) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

type namedHandler struct {
	name string
	h    Handler
}

// Notifier queues events and hands them to every registered handler in
// order. Notify never blocks: when the queue is full the event is dropped
// and counted.
type Notifier struct {
	queue chan Event

	mu       sync.RWMutex
	handlers []namedHandler

	ran     atomic.Bool
	dropped atomic.Uint64

	logger   Logger
	loggerMu sync.RWMutex
}

// NewNotifier returns a notifier with room for size queued events.
func NewNotifier(size int) *Notifier {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Notifier{queue: make(chan Event, size)}
}

// SetLogger sets the logger.
func (n *Notifier) SetLogger(logger Logger) {
	n.loggerMu.Lock()
	defer n.loggerMu.Unlock()
	n.logger = logger
}

// Register adds a handler. name appears in logs.
func (n *Notifier) Register(name string, h Handler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers = append(n.handlers, namedHandler{name: name, h: h})
}

// Notify queues ev. It is meant to be passed to State.Observe.
func (n *Notifier) Notify(ev Event) {
	select {
	case n.queue <- ev:
	default:
		n.dropped.Add(1)
		n.logWarn("alarm: notifier queue full, dropping event",
			"type", string(ev.Type), "message", ev.Record.Message)
	}
}

// Dropped returns the number of events lost to a full queue.
func (n *Notifier) Dropped() uint64 {
	return n.dropped.Load()
}

// Run delivers events until ctx is done, then delivers what is already
// queued and returns. It may be called once.
func (n *Notifier) Run(ctx context.Context) error {
	if !n.ran.CompareAndSwap(false, true) {
		return ErrNotifierStopped
	}

	for {
		select {
		case ev := <-n.queue:
			n.deliver(ctx, ev)
		case <-ctx.Done():
			n.drain(context.WithoutCancel(ctx))
			return nil
		}
	}
}

// drain delivers what is queued without waiting for more.
func (n *Notifier) drain(ctx context.Context) {
	for {
		select {
		case ev := <-n.queue:
			n.deliver(ctx, ev)
		default:
			return
		}
	}
}

// deliver hands ev to each handler in registration order. A failing
// handler is logged and does not stop the others.
func (n *Notifier) deliver(ctx context.Context, ev Event) {
	n.mu.RLock()
	handlers := n.handlers
	n.mu.RUnlock()

	for _, nh := range handlers {
		if err := nh.h.HandleEvent(ctx, ev); err != nil {
			n.logWarn("alarm: event handler failed", "handler", nh.name,
				"type", string(ev.Type), "error", err)
		}
	}
}

func (n *Notifier) logWarn(msg string, args ...any) {
	n.loggerMu.RLock()
	logger := n.logger
	n.loggerMu.RUnlock()
	if logger != nil {
		logger.Warn(msg, args...)
	}
}
