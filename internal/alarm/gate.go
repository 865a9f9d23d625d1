package alarm

import (
	"context"
	"sync"

	"github.com/nerrad567/gray-logic-hmi/internal/monitor"
	"github.com/nerrad567/gray-logic-hmi/internal/plc"
)

// SummaryGate lets a cycle read its point list only when the controller's
// summary counter has changed since the last applied cycle. The first
// observation always proceeds. A counter that does not read as an integer
// skips the cycle.
type SummaryGate struct {
	link    plc.Link
	address string

	// last is the counter of the last committed cycle, valid once seen.
	// pending is the value read by Proceed, adopted by Commit when primed.
	mu      sync.Mutex
	last    int64
	seen    bool
	pending int64
	primed  bool

	logger   Logger
	loggerMu sync.RWMutex
}

var _ monitor.Gate = (*SummaryGate)(nil)

// NewSummaryGate returns a gate reading address over link.
func NewSummaryGate(link plc.Link, address string) *SummaryGate {
	return &SummaryGate{link: link, address: address}
}

// SetLogger sets the logger.
func (g *SummaryGate) SetLogger(logger Logger) {
	g.loggerMu.Lock()
	defer g.loggerMu.Unlock()
	g.logger = logger
}

// Proceed reads the counter and reports whether the cycle should continue.
func (g *SummaryGate) Proceed(ctx context.Context) bool {
	values, err := g.link.ReadBatch(ctx, []string{g.address})
	if err != nil || len(values) != 1 {
		g.logDebug("alarm: summary read failed", "address", g.address, "error", err)
		return false
	}

	n, ok := counterValue(values[0])
	if !ok {
		g.logDebug("alarm: summary counter is not an integer", "address", g.address, "value", values[0])
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seen && n == g.last {
		g.primed = false
		return false
	}
	g.pending = n
	g.primed = true
	return true
}

// Commit accepts the value read by the last successful Proceed.
func (g *SummaryGate) Commit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.primed {
		return
	}
	g.last = g.pending
	g.seen = true
	g.primed = false
}

// Reset forgets the last value so the next cycle proceeds.
func (g *SummaryGate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen = false
	g.primed = false
}

// counterValue accepts integer counters only. Floats and booleans mean the
// address points at the wrong variable.
func counterValue(v any) (int64, bool) {
	switch v.(type) {
	case float32, float64, bool:
		return 0, false
	}
	return plc.ToInt(v)
}

func (g *SummaryGate) logDebug(msg string, args ...any) {
	g.loggerMu.RLock()
	logger := g.logger
	g.loggerMu.RUnlock()
	if logger != nil {
		logger.Debug(msg, args...)
	}
}
