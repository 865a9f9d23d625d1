// Package influxdb provides InfluxDB connectivity for the Gray Logic HMI.
//
// It wraps the official influxdb-client-go v2 library for connection
// management, telemetry writing, and health monitoring.
//
// # Purpose
//
// This package stores the machine's time series:
//   - hmi_point: numeric and boolean point values (IO, axes, cylinders, parameters)
//   - hmi_event: alarm and info edges with the active count after each edge
//   - hmi_statistics: production statistics samples
//   - hmi_alarm_duration: seconds a cleared alarm or info was active, stamped at the clear
//
// Every point carries a "machine" tag.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB, cfg.Machine.ID)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WritePointValue("axes", "x", "position", 12.5, time.Now())
//
// # Error Handling
//
// Write operations are non-blocking; batch errors are delivered to the
// SetOnError callback. Connection and health check errors are returned directly.
package influxdb
