package alarm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/database"
)

const (
	defaultHistoryLimit = 200
	maxHistoryLimit     = 5000

	historyTable  = "alarm_events"
	historyColumn = "occurred_at"
)

// HistoryEntry is one mirrored edge.
type HistoryEntry struct {
	// ID is the row ID; it grows with insertion order.
	ID int64 `json:"id"`

	// Machine is the machine ID the edge was recorded for.
	Machine string `json:"machine"`

	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Station string `json:"station"`

	// Active is true for a raised edge and false for a cleared one.
	Active bool `json:"active"`

	// OccurredAt is the edge time, raise or clear.
	OccurredAt time.Time `json:"occurred_at"`
}

// HistoryQuery selects mirrored edges. Zero values mean unbounded.
type HistoryQuery struct {
	// From is inclusive, To exclusive.
	From time.Time
	To   time.Time

	// Kind restricts to one kind when set.
	Kind *Kind

	// Station must match exactly when set.
	Station string

	// Limit caps the number of rows, newest first. Zero means 200; values
	// above 5000 are clamped.
	Limit int
}

// StationCount is the number of raised edges of one station.
type StationCount struct {
	Station string `json:"station"`

	// Alarms and Infos count raised edges only; clears are not counted.
	Alarms int `json:"alarms"`
	Infos  int `json:"infos"`
}

// SQLiteHistory mirrors every edge into the alarm_events table for range
// queries and per-station statistics. The daily CSV log stays the primary
// record.
type SQLiteHistory struct {
	db      *database.DB
	machine string
}

var _ Handler = (*SQLiteHistory)(nil)

// NewSQLiteHistory returns a history writing rows tagged with machine.
func NewSQLiteHistory(db *database.DB, machine string) *SQLiteHistory {
	return &SQLiteHistory{db: db, machine: machine}
}

// HandleEvent stores ev.
func (h *SQLiteHistory) HandleEvent(ctx context.Context, ev Event) error {
	active := 0
	if ev.Type == EventRaised {
		active = 1
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO alarm_events (machine, kind, message, station, active, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		h.machine,
		ev.Record.Kind.Key(),
		ev.Record.Message,
		ev.Record.Station,
		active,
		database.FormatTime(ev.At),
	)
	if err != nil {
		return fmt.Errorf("inserting alarm event: %w", err)
	}
	return nil
}

// List returns matching edges, newest first.
func (h *SQLiteHistory) List(ctx context.Context, q HistoryQuery) ([]HistoryEntry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	where, args := h.where(q.From, q.To)
	if q.Kind != nil {
		where = append(where, "kind = ?")
		args = append(args, q.Kind.Key())
	}
	if q.Station != "" {
		where = append(where, "station = ?")
		args = append(args, q.Station)
	}
	args = append(args, limit)

	//nolint:gosec // where holds only fixed fragments
	query := `SELECT id, machine, kind, message, station, active, occurred_at
		 FROM alarm_events
		 WHERE ` + strings.Join(where, " AND ") + `
		 ORDER BY occurred_at DESC, id DESC
		 LIMIT ?`

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying alarm events: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0)
	for rows.Next() {
		var (
			e          HistoryEntry
			kind       string
			active     int
			occurredAt string
		)
		if err := rows.Scan(&e.ID, &e.Machine, &kind, &e.Message, &e.Station, &active, &occurredAt); err != nil {
			return nil, fmt.Errorf("scanning alarm event: %w", err)
		}
		if e.Kind, err = ParseKind(kind); err != nil {
			return nil, err
		}
		e.Active = active == 1
		if e.OccurredAt, err = database.ParseTime(occurredAt); err != nil {
			return nil, fmt.Errorf("parsing occurred_at: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alarm events: %w", err)
	}
	return entries, nil
}

// StationCounts counts raised edges per station in [from, to), busiest first.
func (h *SQLiteHistory) StationCounts(ctx context.Context, from, to time.Time) ([]StationCount, error) {
	where, args := h.where(from, to)
	where = append(where, "active = 1")

	//nolint:gosec // where holds only fixed fragments
	query := `SELECT station,
		        SUM(CASE WHEN kind = 'alarm' THEN 1 ELSE 0 END),
		        SUM(CASE WHEN kind = 'info' THEN 1 ELSE 0 END)
		 FROM alarm_events
		 WHERE ` + strings.Join(where, " AND ") + `
		 GROUP BY station
		 ORDER BY COUNT(*) DESC, station ASC`

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying station counts: %w", err)
	}
	defer rows.Close()

	counts := make([]StationCount, 0)
	for rows.Next() {
		var c StationCount
		if err := rows.Scan(&c.Station, &c.Alarms, &c.Infos); err != nil {
			return nil, fmt.Errorf("scanning station count: %w", err)
		}
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating station counts: %w", err)
	}
	return counts, nil
}

// Prune deletes edges older than olderThan.
func (h *SQLiteHistory) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}
	return h.db.PruneBefore(ctx, historyTable, historyColumn, time.Now().Add(-olderThan))
}

// where scopes a query to this machine and the half-open range [from, to).
func (h *SQLiteHistory) where(from, to time.Time) ([]string, []any) {
	where := []string{"machine = ?"}
	args := []any{h.machine}
	if !from.IsZero() {
		where = append(where, "occurred_at >= ?")
		args = append(args, database.FormatTime(from))
	}
	if !to.IsZero() {
		where = append(where, "occurred_at < ?")
		args = append(args, database.FormatTime(to))
	}
	return where, args
}
