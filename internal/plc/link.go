package plc

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/config"
)

// Link is the read contract used by monitor loops.
type Link interface {
	// ReadBatch returns exactly one value per address, in address order.
	// Any single-point fault fails the whole batch and no values are
	// returned. Values are Go scalars (bool, intN, uintN, floatN, string).
	ReadBatch(ctx context.Context, addresses []string) ([]any, error)

	// IsConnected reports whether a session is established. Loops skip
	// their read while it is false.
	IsConnected() bool
}

// Writer writes a single point.
type Writer interface {
	// Write sets address to value. The value must already have the Go type
	// of the controller variable; ParseValue produces it from operator input.
	Write(ctx context.Context, address string, value any) error
	IsConnected() bool
}

// Conn is a full controller session owned by main and injected everywhere else.
type Conn interface {
	Link
	Writer

	// Connect establishes the session. It is safe to call again after a
	// failure.
	Connect(ctx context.Context) error

	// Close ends the session. Later reads fail with ErrNotConnected.
	Close(ctx context.Context) error

	// HealthCheck returns nil while the session is usable.
	HealthCheck(ctx context.Context) error

	// Stats returns a snapshot of the link counters.
	Stats() Stats
}

// Logger is the optional logging interface used by this package.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Stats holds link counters. Counters only grow for the life of the Conn;
// a reconnect does not reset them.
type Stats struct {
	// Connected is IsConnected at the time of the snapshot.
	Connected bool `json:"connected"`

	// Reads counts ReadBatch calls, failed ones included.
	Reads uint64 `json:"reads"`

	// ReadErrors counts ReadBatch calls that returned an error.
	ReadErrors uint64 `json:"read_errors"`

	// Writes counts Write calls, failed ones included.
	Writes uint64 `json:"writes"`

	// WriteErrors counts Write calls that returned an error.
	WriteErrors uint64 `json:"write_errors"`

	// LastRead is the time of the last successful batch, zero before the
	// first one.
	LastRead time.Time `json:"last_read,omitempty"`
}

var (
	_ Conn = (*OPCUA)(nil)
	_ Conn = (*Simulator)(nil)
)

// New builds the link selected by cfg.Driver. The returned Conn is not yet
// connected.
func New(cfg config.PLCConfig) (Conn, error) {
	switch cfg.Driver {
	case "opcua":
		return NewOPCUA(cfg), nil
	case "simulated":
		return NewSimulator(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}
