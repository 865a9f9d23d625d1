package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-hmi/internal/alarm"
	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-hmi/internal/points"
)

type edgeWrite struct {
	kind, edge, station, message string
	active                       int
}

type mockInflux struct {
	mu     sync.Mutex
	values []any
	edges  []edgeWrite
	stats  []influxdb.StatisticsFields
	times  []time.Time

	valueTimes []time.Time
	edgeTimes  []time.Time
	custom     []customWrite
}

type customWrite struct {
	measurement string
	tags        map[string]string
	fields      map[string]any
	at          time.Time
}

func (m *mockInflux) WritePointValue(_, _, _ string, value any, at time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = append(m.values, value)
	m.valueTimes = append(m.valueTimes, at)
	return true
}

func (m *mockInflux) WriteEventEdge(kind, edge, station, message string, active int, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edges = append(m.edges, edgeWrite{kind, edge, station, message, active})
	m.edgeTimes = append(m.edgeTimes, at)
}

func (m *mockInflux) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.custom = append(m.custom, customWrite{measurement, tags, fields, at})
}

func (m *mockInflux) WriteStatistics(s influxdb.StatisticsFields, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats = append(m.stats, s)
	m.times = append(m.times, at)
}

func TestTelemetry_HandleEvent(t *testing.T) {
	w := &mockInflux{}
	tel := NewTelemetry(w)

	rec := alarm.Record{Kind: alarm.KindInfo, Message: "Low oil", Station: "Pump"}
	_ = tel.HandleEvent(context.Background(), alarm.Event{Type: alarm.EventRaised, Record: rec, At: t0, ActiveCount: 1})
	_ = tel.HandleEvent(context.Background(), alarm.Event{Type: alarm.EventCleared, Record: rec, At: t0, ActiveCount: 0})

	want := []edgeWrite{
		{"info", influxdb.EdgeRaised, "Pump", "Low oil", 1},
		{"info", influxdb.EdgeCleared, "Pump", "Low oil", 0},
	}
	if len(w.edges) != len(want) {
		t.Fatalf("edges = %+v", w.edges)
	}
	for i := range want {
		if w.edges[i] != want[i] {
			t.Errorf("edge[%d] = %+v, want %+v", i, w.edges[i], want[i])
		}
	}
}

func TestTelemetry_RecordChanges(t *testing.T) {
	w := &mockInflux{}
	NewTelemetry(w).RecordChanges([]points.Change{
		{Table: "io", Name: "a", Current: true},
		{Table: "axes", Name: "b", Current: int32(7)},
	})

	if len(w.values) != 2 || w.values[0] != true || w.values[1] != int32(7) {
		t.Errorf("values = %v", w.values)
	}
}

func TestTelemetry_RecordStatistics(t *testing.T) {
	w := &mockInflux{}
	tel := NewTelemetry(w)

	tel.RecordStatistics(points.Statistics{RunningTime: 1, Total: 4, NG: 1, OK: 3, UpdatedAt: t0})
	tel.RecordStatistics(points.Statistics{})

	if len(w.stats) != 2 {
		t.Fatalf("stats = %+v", w.stats)
	}
	if w.stats[0].Yield != 0.75 || w.stats[0].Availability != 1 || w.stats[0].OK != 3 {
		t.Errorf("stats[0] = %+v", w.stats[0])
	}
	if !w.times[0].Equal(t0) {
		t.Errorf("time = %v, want %v", w.times[0], t0)
	}
	if w.times[1].IsZero() {
		t.Error("zero UpdatedAt should be replaced with now")
	}
}

func TestTelemetry_StampsSourceTimes(t *testing.T) {
	w := &mockInflux{}
	tel := NewTelemetry(w)
	changedAt := t0.Add(90 * time.Second)
	clearedAt := t0.Add(5 * time.Minute)

	tel.RecordChanges([]points.Change{{Table: "io", Name: "a", Current: true, At: changedAt}})
	rec := alarm.Record{Kind: alarm.KindAlarm, Message: "Door open", Station: "Loader", RaisedAt: t0}
	_ = tel.HandleEvent(context.Background(), alarm.Event{Type: alarm.EventRaised, Record: rec, At: t0, ActiveCount: 1})
	_ = tel.HandleEvent(context.Background(), alarm.Event{Type: alarm.EventCleared, Record: rec, At: clearedAt})

	if len(w.valueTimes) != 1 || !w.valueTimes[0].Equal(changedAt) {
		t.Errorf("point times = %v, want [%v]", w.valueTimes, changedAt)
	}
	if len(w.edgeTimes) != 2 || !w.edgeTimes[0].Equal(t0) || !w.edgeTimes[1].Equal(clearedAt) {
		t.Errorf("edge times = %v", w.edgeTimes)
	}

	if len(w.custom) != 1 {
		t.Fatalf("custom writes = %+v, want one duration", w.custom)
	}
	d := w.custom[0]
	if d.measurement != influxdb.MeasurementAlarmDuration || !d.at.Equal(clearedAt) {
		t.Errorf("duration write = %s at %v", d.measurement, d.at)
	}
	if d.tags["station"] != "Loader" || d.tags["kind"] != "alarm" {
		t.Errorf("duration tags = %v", d.tags)
	}
	if d.fields["seconds"] != 300.0 {
		t.Errorf("duration seconds = %v, want 300", d.fields["seconds"])
	}
}

func TestTelemetry_ClearWithoutRaiseTimeSkipsDuration(t *testing.T) {
	w := &mockInflux{}
	rec := alarm.Record{Kind: alarm.KindInfo, Message: "Low oil"}
	_ = NewTelemetry(w).HandleEvent(context.Background(), alarm.Event{Type: alarm.EventCleared, Record: rec, At: t0})

	if len(w.custom) != 0 {
		t.Errorf("custom writes = %+v, want none", w.custom)
	}
}
