package alarm

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-hmi/internal/eventlog"
)

var errJournal = errors.New("disk full")

// memJournal keeps appended records in memory.
type memJournal struct {
	mu      sync.Mutex
	records []eventlog.Record
	days    []time.Time
	fail    bool
}

func (j *memJournal) AppendOn(day time.Time, rec eventlog.Record) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return errJournal
	}
	j.records = append(j.records, rec)
	j.days = append(j.days, day)
	return nil
}

func (j *memJournal) all() []eventlog.Record {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]eventlog.Record, len(j.records))
	copy(out, j.records)
	return out
}

// mockLogger counts log calls per level.
type mockLogger struct {
	mu     sync.Mutex
	debugs int
	warns  int
	errors int
}

func (m *mockLogger) Debug(string, ...any) { m.mu.Lock(); m.debugs++; m.mu.Unlock() }
func (m *mockLogger) Warn(string, ...any)  { m.mu.Lock(); m.warns++; m.mu.Unlock() }
func (m *mockLogger) Error(string, ...any) { m.mu.Lock(); m.errors++; m.mu.Unlock() }

func (m *mockLogger) counts() (debugs, warns, errs int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.debugs, m.warns, m.errors
}

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
