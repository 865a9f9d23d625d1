// Package metrics exposes the service's Prometheus metrics.
//
// Recorder owns a private registry with the Go and process collectors and
// the HMI series:
//
//	graylogic_hmi_polls_total{subsystem,result}
//	graylogic_hmi_poll_duration_seconds{subsystem}
//	graylogic_hmi_poll_skips_total{subsystem,reason}
//	graylogic_hmi_transitions_total{subsystem}
//	graylogic_hmi_alarm_edges_total{kind,edge}
//	graylogic_hmi_active_events
//	graylogic_hmi_plc_writes_total{kind,result}
//
// Recorder satisfies the Metrics interfaces of the monitor and control
// packages. Callers add gauges read at scrape time with GaugeFunc.
package metrics
