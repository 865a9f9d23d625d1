package alarm

import (
	"fmt"
	"strings"
	"time"
)

// DefaultStation is used for points configured without a station.
const DefaultStation = "unknown station"

// Kind separates alarms from informational messages.
type Kind int

const (
	// KindAlarm is a fault that needs operator attention.
	KindAlarm Kind = iota
	// KindInfo is an informational message such as "material low".
	KindInfo
)

// String returns the name written to the event log type column.
func (k Kind) String() string {
	switch k {
	case KindAlarm:
		return "Alarm"
	case KindInfo:
		return "Info"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Key returns the lowercase form used in topics, tables and JSON.
func (k Kind) Key() string {
	return strings.ToLower(k.String())
}

// ParseKind accepts "alarm" or "info" in any case.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "alarm":
		return KindAlarm, nil
	case "info":
		return KindInfo, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.Key()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Descriptor is the configured text of one alarm or info point. Message
// and Station together identify an active record, so two points with the
// same text share a record.
type Descriptor struct {
	// Message is the operator-facing text, e.g. "Safety door open".
	Message string `json:"message" yaml:"message"`

	// Station names the part of the machine; blank means DefaultStation.
	Station string `json:"station" yaml:"station"`
}

// Normalize fills in the default station.
func (d Descriptor) Normalize() Descriptor {
	if strings.TrimSpace(d.Station) == "" {
		d.Station = DefaultStation
	}
	return d
}

// Record is one entry of the active list.
type Record struct {
	// ID is the list length when the record was raised. IDs are not
	// renumbered when other records clear, so they can repeat.
	ID int `json:"id"`

	Kind Kind `json:"kind"`

	// Message and Station are copied from the Descriptor, station
	// normalised.
	Message string `json:"message"`
	Station string `json:"station"`

	// RaisedAt is the rising edge time. It is kept on the clear line of
	// the event log as well.
	RaisedAt time.Time `json:"raised_at"`

	// Active is true while listed; the copy handed out on a clear is false.
	Active bool `json:"active"`
}

// matches reports whether r was raised for d. d must be normalised.
func (r Record) matches(d Descriptor) bool {
	return r.Message == d.Message && r.Station == d.Station
}

// EventType names an edge. The values double as WebSocket and MQTT
// message types.
type EventType string

const (
	// EventRaised is sent after a record joins the active list.
	EventRaised EventType = "alarm.raised"
	// EventCleared is sent after a record leaves it.
	EventCleared EventType = "alarm.cleared"
)

// Event is passed to observers for every applied edge.
type Event struct {
	Type EventType `json:"type"`

	// Record is the record as it was journaled; Active is false for clears.
	Record Record `json:"record"`

	// At is the time of the edge. For raised events it equals Record.RaisedAt.
	At time.Time `json:"at"`

	// ActiveCount is the length of the active list after the edge.
	ActiveCount int `json:"active_count"`
}
