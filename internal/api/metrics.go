package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/gray-logic-hmi/internal/alarm"
	"github.com/nerrad567/gray-logic-hmi/internal/plc"
)

// SystemMetrics is the JSON summary served at /api/v1/metrics. The full
// series are in the Prometheus registry at /metrics.
type SystemMetrics struct {
	Timestamp     string         `json:"timestamp"`
	Version       string         `json:"version"`
	Machine       string         `json:"machine"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Runtime       RuntimeMetrics `json:"runtime"`
	WebSocket     WSMetrics      `json:"websocket"`
	PLC           *plc.Stats     `json:"plc,omitempty"`
	Alarms        AlarmMetrics   `json:"alarms"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// AlarmMetrics contains active list sizes.
type AlarmMetrics struct {
	Active int `json:"active"`
	Alarms int `json:"alarms"`
	Infos  int `json:"infos"`
}

// handleMetrics returns a snapshot of runtime, link and alarm counters.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		Machine:       s.machine,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		Alarms: AlarmMetrics{
			Active: s.alarms.Count(),
			Alarms: s.alarms.CountKind(alarm.KindAlarm),
			Infos:  s.alarms.CountKind(alarm.KindInfo),
		},
	}

	if s.link != nil {
		st := s.link.Stats()
		m.PLC = &st
	}

	writeJSON(w, http.StatusOK, m)
}
