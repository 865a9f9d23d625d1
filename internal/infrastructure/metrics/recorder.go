package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "graylogic_hmi"

// Result label values.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Recorder records engine metrics into its own registry.
type Recorder struct {
	registry *prometheus.Registry

	polls        *prometheus.CounterVec
	pollDuration *prometheus.HistogramVec
	skips        *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	alarmEdges   *prometheus.CounterVec
	activeEvents prometheus.Gauge
	writes       *prometheus.CounterVec
}

// New returns a Recorder with every series registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Batch reads by subsystem and result.",
		}, []string{"subsystem", "result"}),
		pollDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Batch read latency.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"subsystem"}),
		skips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_skips_total",
			Help:      "Cycles skipped without applying, by reason.",
		}, []string{"subsystem", "reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Point transitions applied.",
		}, []string{"subsystem"}),
		alarmEdges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alarm_edges_total",
			Help:      "Alarm and info records raised and cleared.",
		}, []string{"kind", "edge"}),
		activeEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_events",
			Help:      "Active alarm and info records.",
		}),
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plc_writes_total",
			Help:      "Operator writes by control kind and result.",
		}, []string{"kind", "result"}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.polls, r.pollDuration, r.skips, r.transitions,
		r.alarmEdges, r.activeEvents, r.writes,
	)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// GaugeFunc registers a gauge whose value is read at scrape time.
func (r *Recorder) GaugeFunc(name, help string, fn func() float64) error {
	return r.registry.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// CounterFunc registers a counter whose value is read at scrape time.
func (r *Recorder) CounterFunc(name, help string, fn func() float64) error {
	return r.registry.Register(prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// ObservePoll records one batch read.
func (r *Recorder) ObservePoll(subsystem string, elapsed time.Duration, err error) {
	r.polls.WithLabelValues(subsystem, result(err)).Inc()
	r.pollDuration.WithLabelValues(subsystem).Observe(elapsed.Seconds())
}

// ObserveSkip records a skipped cycle.
func (r *Recorder) ObserveSkip(subsystem, reason string) {
	r.skips.WithLabelValues(subsystem, reason).Inc()
}

// ObserveTransitions records the transitions applied in one cycle.
func (r *Recorder) ObserveTransitions(subsystem string, n int) {
	if n > 0 {
		r.transitions.WithLabelValues(subsystem).Add(float64(n))
	}
}

// ObserveAlarmEdge records a raise or clear and the resulting active count.
func (r *Recorder) ObserveAlarmEdge(kind, edge string, active int) {
	r.alarmEdges.WithLabelValues(kind, edge).Inc()
	r.activeEvents.Set(float64(active))
}

// ObserveWrite records an operator write.
func (r *Recorder) ObserveWrite(kind string, err error) {
	r.writes.WithLabelValues(kind, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultOK
}
