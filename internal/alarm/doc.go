// Package alarm keeps the list of active alarms and infos of the machine.
//
// Two monitor sessions feed it, one per kind. Each reads its boolean
// points in configured order; a rising edge at index i raises the
// descriptor configured for i, a falling edge clears the first active
// record with the same message and station. Raise is positional and clear
// is by content, so two points that share message and station can clear
// each other's record. Configurations are expected to keep descriptors
// unique.
//
// State is written from the monitor dispatcher only. Snapshot and Count
// are lock-free and safe from any goroutine.
//
// Every edge is journaled to the daily event log synchronously and passed
// to observers. Notifier moves events off the dispatcher goroutine to the
// SQLite mirror, MQTT, WebSocket and InfluxDB.
package alarm
