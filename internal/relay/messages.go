package relay

import (
	"time"

	"github.com/nerrad567/gray-logic-hmi/internal/alarm"
	"github.com/nerrad567/gray-logic-hmi/internal/points"
)

// EventMessage is published for every alarm or info edge.
// Topic: graylogic/hmi/{machine}/alarm
// QoS: default, Retained: No
type EventMessage struct {
	Type        alarm.EventType `json:"type"`
	ID          int             `json:"id"`
	Kind        string          `json:"kind"`
	Message     string          `json:"message"`
	Station     string          `json:"station"`
	RaisedAt    time.Time       `json:"raised_at"`
	Timestamp   time.Time       `json:"timestamp"`
	ActiveCount int             `json:"active_count"`
}

// ActiveMessage carries the active list size.
// Topic: graylogic/hmi/{machine}/alarm/active
// QoS: default, Retained: Yes
type ActiveMessage struct {
	Count     int       `json:"count"`
	Alarms    int       `json:"alarms"`
	Infos     int       `json:"infos"`
	Timestamp time.Time `json:"timestamp"`
}

// PointMessage carries one table point value.
// Topic: graylogic/hmi/{machine}/point/{table}/{name}
// QoS: default, Retained: Yes
type PointMessage struct {
	Table     string    `json:"table"`
	Group     string    `json:"group,omitempty"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Value     any       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// StatisticsMessage carries production statistics.
// Topic: graylogic/hmi/{machine}/statistics
// QoS: default, Retained: Yes
type StatisticsMessage struct {
	points.Statistics
	Availability float64 `json:"availability"`
	Yield        float64 `json:"yield"`
}

// Command actions.
const (
	ActionSetTrue  = "set_true"
	ActionSetFalse = "set_false"
	ActionSetValue = "set_value"
)

// CommandMessage is received on a control's command topic.
// Topic: graylogic/hmi/{machine}/command/{control}
type CommandMessage struct {
	// ID correlates the acknowledgement. Optional.
	ID string `json:"id"`

	// Action is set_true, set_false or set_value.
	Action string `json:"action"`

	// Value is the raw value for set_value, converted to the control's mode.
	Value string `json:"value,omitempty"`

	// UserID is recorded in the audit trail. Defaults to "mqtt".
	UserID string `json:"user_id,omitempty"`
}

// AckStatus is the outcome of a command.
type AckStatus string

const (
	AckAccepted AckStatus = "accepted"
	AckFailed   AckStatus = "failed"
)

// Error codes for failed commands.
const (
	ErrCodeInvalidCommand = "INVALID_COMMAND"
	ErrCodeUnknownControl = "UNKNOWN_CONTROL"
	ErrCodeInvalidValue   = "INVALID_VALUE"
	ErrCodeNotConnected   = "PLC_NOT_CONNECTED"
	ErrCodeWriteFailed    = "WRITE_FAILED"
)

// AckMessage answers a command.
// Topic: graylogic/hmi/{machine}/ack/{control}
// QoS: default, Retained: No
type AckMessage struct {
	CommandID string    `json:"command_id,omitempty"`
	Control   string    `json:"control"`
	Status    AckStatus `json:"status"`
	Error     *AckError `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AckError describes a failed command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newEventMessage(ev alarm.Event) EventMessage {
	return EventMessage{
		Type:        ev.Type,
		ID:          ev.Record.ID,
		Kind:        ev.Record.Kind.Key(),
		Message:     ev.Record.Message,
		Station:     ev.Record.Station,
		RaisedAt:    ev.Record.RaisedAt,
		Timestamp:   ev.At,
		ActiveCount: ev.ActiveCount,
	}
}

func newPointMessage(c points.Change) PointMessage {
	return PointMessage{
		Table:     c.Table,
		Group:     c.Group,
		Name:      c.Name,
		Address:   c.Address,
		Value:     c.Current,
		Timestamp: c.At,
	}
}

func newStatisticsMessage(s points.Statistics) StatisticsMessage {
	return StatisticsMessage{
		Statistics:   s,
		Availability: s.Availability(),
		Yield:        s.Yield(),
	}
}
