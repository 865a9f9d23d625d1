package relay

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-hmi/internal/alarm"
	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-hmi/internal/points"
)

// InfluxWriter is the subset of *influxdb.Client used for telemetry.
// Its writes are non-blocking.
type InfluxWriter interface {
	WritePointValue(table, group, name string, value any, at time.Time) bool
	WriteEventEdge(kind, edge, station, message string, active int, at time.Time)
	WriteStatistics(s influxdb.StatisticsFields, at time.Time)
	WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, at time.Time)
}

// Telemetry records edges, point values and statistics as time series.
type Telemetry struct {
	w InfluxWriter
}

var _ alarm.Handler = (*Telemetry)(nil)

// NewTelemetry returns a Telemetry writing to w.
func NewTelemetry(w InfluxWriter) *Telemetry {
	return &Telemetry{w: w}
}

// HandleEvent writes one edge stamped with ev.At. A clear also records how
// long the entry was active.
func (t *Telemetry) HandleEvent(_ context.Context, ev alarm.Event) error {
	edge := influxdb.EdgeRaised
	if ev.Type == alarm.EventCleared {
		edge = influxdb.EdgeCleared
	}
	t.w.WriteEventEdge(ev.Record.Kind.Key(), edge, ev.Record.Station, ev.Record.Message, ev.ActiveCount, ev.At)

	if ev.Type == alarm.EventCleared && !ev.Record.RaisedAt.IsZero() && !ev.At.Before(ev.Record.RaisedAt) {
		t.w.WritePointWithTime(influxdb.MeasurementAlarmDuration,
			map[string]string{
				"kind":    ev.Record.Kind.Key(),
				"station": ev.Record.Station,
			},
			map[string]any{
				"message": ev.Record.Message,
				"seconds": ev.At.Sub(ev.Record.RaisedAt).Seconds(),
			},
			ev.At,
		)
	}
	return nil
}

// RecordChanges writes numeric and boolean values; other types are skipped.
func (t *Telemetry) RecordChanges(changes []points.Change) {
	for _, c := range changes {
		t.w.WritePointValue(c.Table, c.Group, c.Name, c.Current, c.At)
	}
}

// RecordStatistics writes one statistics sample.
func (t *Telemetry) RecordStatistics(s points.Statistics) {
	at := s.UpdatedAt
	if at.IsZero() {
		at = time.Now()
	}
	t.w.WriteStatistics(influxdb.StatisticsFields{
		RunningTime:  s.RunningTime,
		PauseTime:    s.PauseTime,
		AlarmTime:    s.AlarmTime,
		DownTime:     s.DownTime,
		Total:        s.Total,
		NG:           s.NG,
		OK:           s.OK,
		Availability: s.Availability(),
		Yield:        s.Yield(),
	}, at)
}
