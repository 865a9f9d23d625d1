package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementPoint      = "hmi_point"
	MeasurementEvent      = "hmi_event"
	MeasurementStatistics = "hmi_statistics"
	// MeasurementAlarmDuration holds how long a cleared alarm or info was
	// active, stamped with its clear time.
	MeasurementAlarmDuration = "hmi_alarm_duration"
)

// Edge tag values of MeasurementEvent.
const (
	EdgeRaised  = "raised"
	EdgeCleared = "cleared"
)

// StatisticsFields is one production statistics sample.
type StatisticsFields struct {
	RunningTime  float64
	PauseTime    float64
	AlarmTime    float64
	DownTime     float64
	Total        int64
	NG           int64
	OK           int64
	Availability float64
	Yield        float64
}

// WritePointValue records one table point value.
//
// Booleans are stored as 0/1 so they graph next to numeric points. Values
// of any other type (strings, nil) are ignored and false is returned.
//
// Example:
//
//	client.WritePointValue("axes", "x", "position", 12.5, time.Now())
//	// hmi_point,machine=press-01,table=axes,group=x,name=position value=12.5
func (c *Client) WritePointValue(table, group, name string, value any, at time.Time) bool {
	if !c.IsConnected() {
		return false
	}

	v, ok := numeric(value)
	if !ok {
		return false
	}

	tags := map[string]string{
		"table": table,
		"name":  name,
	}
	if group != "" {
		tags["group"] = group
	}

	c.WritePointWithTime(MeasurementPoint, tags, map[string]any{"value": v}, at)
	return true
}

// WriteEventEdge records an alarm or info edge together with the active
// count after the edge.
//
// kind is "alarm" or "info"; edge is EdgeRaised or EdgeCleared.
func (c *Client) WriteEventEdge(kind, edge, station, message string, active int, at time.Time) {
	c.WritePointWithTime(
		MeasurementEvent,
		map[string]string{
			"kind":    kind,
			"edge":    edge,
			"station": station,
		},
		map[string]any{
			"message": message,
			"active":  active,
		},
		at,
	)
}

// WriteStatistics records one production statistics sample.
func (c *Client) WriteStatistics(s StatisticsFields, at time.Time) {
	c.WritePointWithTime(
		MeasurementStatistics,
		nil,
		map[string]any{
			"running_time": s.RunningTime,
			"pause_time":   s.PauseTime,
			"alarm_time":   s.AlarmTime,
			"down_time":    s.DownTime,
			"total":        s.Total,
			"ng":           s.NG,
			"ok":           s.OK,
			"availability": s.Availability,
			"yield":        s.Yield,
		},
		at,
	)
}

// WritePointWithTime writes a point stamped with timestamp rather than the
// flush time. The machine tag is added unless tags already carry one.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	t := make(map[string]string, len(tags)+1)
	t["machine"] = c.machine
	for k, v := range tags {
		t[k] = v
	}

	c.writeAPI.WritePoint(write.NewPoint(measurement, t, fields, timestamp))
}

// numeric converts PLC values to float64.
func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
