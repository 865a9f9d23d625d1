package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-hmi/internal/alarm"
	"github.com/nerrad567/gray-logic-hmi/internal/audit"
	"github.com/nerrad567/gray-logic-hmi/internal/auth"
	"github.com/nerrad567/gray-logic-hmi/internal/control"
	"github.com/nerrad567/gray-logic-hmi/internal/eventlog"
	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-hmi/internal/machine"
	"github.com/nerrad567/gray-logic-hmi/internal/monitor"
	"github.com/nerrad567/gray-logic-hmi/internal/plc"
	"github.com/nerrad567/gray-logic-hmi/internal/points"
	"github.com/nerrad567/gray-logic-hmi/internal/production"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// ActiveList is the read side of the alarm state. *alarm.State implements it.
type ActiveList interface {
	Snapshot() []alarm.Record
	Count() int
	CountKind(kind alarm.Kind) int
}

// EventLog reads the daily event files. *eventlog.Log implements it.
type EventLog interface {
	Query(ctx context.Context, day time.Time, f eventlog.Filter) []eventlog.Record
	Days() ([]time.Time, error)
	Location() *time.Location
}

// AlarmHistory queries mirrored edges. *alarm.SQLiteHistory implements it.
type AlarmHistory interface {
	List(ctx context.Context, q alarm.HistoryQuery) ([]alarm.HistoryEntry, error)
	StationCounts(ctx context.Context, from, to time.Time) ([]alarm.StationCount, error)
}

// ProductionArchive reads production data files. *production.Archive
// implements it.
type ProductionArchive interface {
	Day(ctx context.Context, day time.Time) (production.Series, error)
	Month(ctx context.Context, month time.Time) (production.Series, error)
	Files() []string
	Records(ctx context.Context, index int) (eventlog.Table, error)
}

// Controller performs operator writes. *control.Service implements it.
type Controller interface {
	SetTrue(ctx context.Context, id string, actor control.Actor) error
	SetFalse(ctx context.Context, id string, actor control.Actor) error
	SetValue(ctx context.Context, id, raw string, actor control.Actor) error
	Control(id string) (machine.Control, error)
	List() []machine.Control
	IsConnected() bool
}

// HealthChecker is implemented by every infrastructure client.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// LinkStats reports controller link counters. plc.Conn implements it.
type LinkStats interface {
	Stats() plc.Stats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger

	// Machine is the machine ID reported by the health endpoint.
	Machine string

	Operators  *auth.Directory
	Alarms     ActiveList
	EventLog   EventLog                 // optional
	History    AlarmHistory             // optional
	Production ProductionArchive        // optional
	Tables     map[string]*points.Table // keyed by table name
	Statistics *points.StatisticsSink   // optional
	Visibility *monitor.Visibility      // optional
	Control    Controller               // optional
	AuditRepo  audit.Repository         // optional
	Metrics    *metrics.Recorder        // optional
	Link       LinkStats                // optional

	// Health is checked by GET /health, keyed by component name.
	Health map[string]HealthChecker

	Version string
}

// Server is the HTTP API server of the HMI.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	wsCfg      config.WebSocketConfig
	secCfg     config.SecurityConfig
	logger     *logging.Logger
	machine    string
	operators  *auth.Directory
	alarms     ActiveList
	eventLog   EventLog
	history    AlarmHistory
	production ProductionArchive
	tables     map[string]*points.Table
	statistics *points.StatisticsSink
	visibility *monitor.Visibility
	control    Controller
	auditRepo  audit.Repository
	auditCh    chan *audit.Entry
	metrics    *metrics.Recorder
	link       LinkStats
	health     map[string]HealthChecker
	version    string
	startTime  time.Time
	tickets    *ticketStore
	server     *http.Server
	hub        *Hub
	cancel     context.CancelFunc // cancels background goroutines on Close()
	done       chan struct{}      // closed when the audit writer has drained
}

// New creates a new API server with the given dependencies.
//
// The WebSocket hub exists from this point on so that it can be registered
// as an event handler before the server starts. The server is not started
// until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (logger, operators, active list)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Operators == nil {
		return nil, fmt.Errorf("operator directory is required")
	}
	if deps.Alarms == nil {
		return nil, fmt.Errorf("alarm state is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		secCfg:     deps.Security,
		logger:     deps.Logger,
		machine:    deps.Machine,
		operators:  deps.Operators,
		alarms:     deps.Alarms,
		eventLog:   deps.EventLog,
		history:    deps.History,
		production: deps.Production,
		tables:     deps.Tables,
		statistics: deps.Statistics,
		visibility: deps.Visibility,
		control:    deps.Control,
		auditRepo:  deps.AuditRepo,
		metrics:    deps.Metrics,
		link:       deps.Link,
		health:     deps.Health,
		version:    deps.Version,
		startTime:  time.Now(),
		tickets:    newTicketStore(),
		hub:        NewHub(deps.WS, deps.Logger),
	}
	if s.tables == nil {
		s.tables = make(map[string]*points.Table)
	}
	if s.auditRepo != nil {
		s.auditCh = make(chan *audit.Entry, auditChanSize)
	}

	return s, nil
}

// Hub returns the WebSocket hub. Register it with the alarm notifier and the
// table and statistics observers to stream updates to clients.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, the ticket cleanup and the audit writer, then
// launches the HTTP listener in a background goroutine. The server can be
// stopped with Close().
//
// Parameters:
//   - ctx: Parent context for the background goroutines
//
// Returns:
//   - error: If the server fails to start
func (s *Server) Start(ctx context.Context) error {
	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	// Create internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)
	go s.cleanTicketsLoop(srvCtx)

	s.done = make(chan struct{})
	if s.auditCh != nil {
		go func() {
			defer close(s.done)
			s.drainAuditLog(srvCtx)
		}()
	} else {
		close(s.done)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.GetReadTimeout(),
		ReadHeaderTimeout: s.cfg.Timeouts.GetReadTimeout(),
		WriteTimeout:      s.cfg.Timeouts.GetWriteTimeout(),
		IdleTimeout:       s.cfg.Timeouts.GetIdleTimeout(),
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections. Queued audit entries are
// written before Close returns.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	err := s.server.Shutdown(ctx)

	// Cancel background goroutines (hub, ticket cleanup, audit writer)
	if s.cancel != nil {
		s.cancel()
	}
	select {
	case <-s.done:
	case <-ctx.Done():
	}

	if err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
