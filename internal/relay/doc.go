// Package relay carries the machine's observable state to the outside world.
//
// Bus publishes alarm edges, the active count, point values and production
// statistics to the machine's MQTT topic tree and executes PLC writes
// received on its command topics. Telemetry writes the same updates to
// InfluxDB.
//
// Both implement alarm.Handler and are registered with the alarm.Notifier;
// point and statistics updates are fed from the table and statistics
// observers.
package relay
