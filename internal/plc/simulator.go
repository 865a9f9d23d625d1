package plc

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
)

// Simulator is an in-memory Conn. Unknown addresses read as false.
// It backs the "simulated" driver and every package's tests.
type Simulator struct {
	mu        sync.RWMutex
	values    map[string]any
	connected bool

	// readErr and writeErr are injected by FailReads and FailWrites.
	readErr  error
	writeErr error

	reads       atomic.Uint64
	readErrors  atomic.Uint64
	writes      atomic.Uint64
	writeErrors atomic.Uint64
	lastRead    atomic.Int64
}

// NewSimulator creates a disconnected simulator.
func NewSimulator() *Simulator {
	return &Simulator{values: make(map[string]any)}
}

// Connect marks the simulator connected.
func (s *Simulator) Connect(_ context.Context) error {
	s.SetConnected(true)
	return nil
}

// Close marks the simulator disconnected.
func (s *Simulator) Close(_ context.Context) error {
	s.SetConnected(false)
	return nil
}

// SetConnected changes the connectivity flag.
func (s *Simulator) SetConnected(connected bool) {
	s.mu.Lock()
	s.connected = connected
	s.mu.Unlock()
}

// IsConnected reports the connectivity flag.
func (s *Simulator) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// HealthCheck returns ErrNotConnected while disconnected.
func (s *Simulator) HealthCheck(_ context.Context) error {
	if !s.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Set stores a value.
func (s *Simulator) Set(address string, value any) {
	s.mu.Lock()
	s.values[address] = value
	s.mu.Unlock()
}

// Get returns a stored value.
func (s *Simulator) Get(address string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[address]
	return v, ok
}

// FailReads makes every ReadBatch return err until called with nil.
func (s *Simulator) FailReads(err error) {
	s.mu.Lock()
	s.readErr = err
	s.mu.Unlock()
}

// FailWrites makes every Write return err until called with nil.
func (s *Simulator) FailWrites(err error) {
	s.mu.Lock()
	s.writeErr = err
	s.mu.Unlock()
}

// ReadBatch returns the stored values in address order.
func (s *Simulator) ReadBatch(ctx context.Context, addresses []string) ([]any, error) {
	s.reads.Add(1)
	values, err := s.readBatch(ctx, addresses)
	if err != nil {
		s.readErrors.Add(1)
		return nil, err
	}
	s.lastRead.Store(time.Now().UnixNano())
	return values, nil
}

// readBatch fails the whole batch on a cancelled context, an empty address
// list, a closed link or an injected error.
func (s *Simulator) readBatch(ctx context.Context, addresses []string) ([]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(addresses) == 0 {
		return nil, ErrEmptyBatch
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.connected {
		return nil, ErrNotConnected
	}
	if s.readErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadFailed, s.readErr)
	}

	values := make([]any, len(addresses))
	for i, addr := range addresses {
		v, ok := s.values[addr]
		if !ok {
			v = false
		}
		values[i] = v
	}
	return values, nil
}

// Write stores value; subsequent reads observe it.
func (s *Simulator) Write(ctx context.Context, address string, value any) error {
	s.writes.Add(1)
	if err := s.write(ctx, address, value); err != nil {
		s.writeErrors.Add(1)
		return err
	}
	return nil
}

func (s *Simulator) write(ctx context.Context, address string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}
	if s.writeErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, address, s.writeErr)
	}
	s.values[address] = value
	return nil
}

// Stats returns simulator counters.
func (s *Simulator) Stats() Stats {
	st := Stats{
		Connected:   s.IsConnected(),
		Reads:       s.reads.Load(),
		ReadErrors:  s.readErrors.Load(),
		Writes:      s.writes.Load(),
		WriteErrors: s.writeErrors.Load(),
	}
	if ns := s.lastRead.Load(); ns != 0 {
		st.LastRead = time.Unix(0, ns)
	}
	return st
}

// Animate flips one random address every interval until ctx is done, and
// bumps counter so summary-gated alarm sessions see a change. Used for
// demos with plc.simulate_alarms.
func (s *Simulator) Animate(ctx context.Context, interval time.Duration, counter string, addresses []string) {
	if len(addresses) == 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			addr := addresses[rand.IntN(len(addresses))] //nolint:gosec // demo data
			s.mu.Lock()
			cur, _ := s.values[addr].(bool)
			s.values[addr] = !cur
			if counter != "" {
				n, _ := ToInt(s.values[counter])
				s.values[counter] = int32(n + 1) //nolint:gosec // wraps only after 2^31 toggles
			}
			s.mu.Unlock()
		}
	}
}
