package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the base of every HMI topic.
//
// Tree per machine:
//
//	graylogic/hmi/{machine}/status               retained, LWT
//	graylogic/hmi/{machine}/alarm                alarm.raised / alarm.cleared events
//	graylogic/hmi/{machine}/alarm/active         retained active count
//	graylogic/hmi/{machine}/point/{table}/{name} retained point value
//	graylogic/hmi/{machine}/statistics           retained production statistics
//	graylogic/hmi/{machine}/command/{control}    inbound PLC writes
//	graylogic/hmi/{machine}/ack/{control}        command acknowledgements
const TopicPrefix = "graylogic/hmi"

// Topics builds topics for one machine.
//
//	topics := mqtt.Topics{Machine: "press-01"}
//	topics.Point("io", "door_closed")
//	// Returns: "graylogic/hmi/press-01/point/io/door_closed"
type Topics struct {
	Machine string
}

// Root returns the machine's topic root.
//
// Example: graylogic/hmi/press-01
func (t Topics) Root() string {
	return fmt.Sprintf("%s/%s", TopicPrefix, t.Machine)
}

// Status returns the retained online/offline topic.
//
// Example: graylogic/hmi/press-01/status
func (t Topics) Status() string {
	return t.Root() + "/status"
}

// Alarm returns the topic alarm and info edges are published on.
//
// Example: graylogic/hmi/press-01/alarm
func (t Topics) Alarm() string {
	return t.Root() + "/alarm"
}

// AlarmActive returns the retained active-count topic.
//
// Example: graylogic/hmi/press-01/alarm/active
func (t Topics) AlarmActive() string {
	return t.Root() + "/alarm/active"
}

// Point returns the retained value topic of one table point.
// Topic separators and wildcards in either part are replaced with "_".
//
// Example: graylogic/hmi/press-01/point/axes/x.position
func (t Topics) Point(table, name string) string {
	return fmt.Sprintf("%s/point/%s/%s", t.Root(), topicLevel(table), topicLevel(name))
}

// Statistics returns the retained production statistics topic.
//
// Example: graylogic/hmi/press-01/statistics
func (t Topics) Statistics() string {
	return t.Root() + "/statistics"
}

// Command returns the inbound write topic of one control.
//
// Example: graylogic/hmi/press-01/command/system.start
func (t Topics) Command(control string) string {
	return fmt.Sprintf("%s/command/%s", t.Root(), topicLevel(control))
}

// Ack returns the acknowledgement topic of one control.
//
// Example: graylogic/hmi/press-01/ack/system.start
func (t Topics) Ack(control string) string {
	return fmt.Sprintf("%s/ack/%s", t.Root(), topicLevel(control))
}

// AllCommands returns a pattern matching every command topic of the machine.
//
// Pattern: graylogic/hmi/press-01/command/+
func (t Topics) AllCommands() string {
	return t.Root() + "/command/+"
}

// CommandControl extracts the control ID from a command topic.
// It returns false for topics outside this machine's command tree.
func (t Topics) CommandControl(topic string) (string, bool) {
	prefix := t.Root() + "/command/"
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	id := strings.TrimPrefix(topic, prefix)
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

var topicReplacer = strings.NewReplacer("/", "_", "+", "_", "#", "_")

func topicLevel(s string) string {
	return topicReplacer.Replace(s)
}
