// Gray Logic HMI - machine-side state synchronisation service
//
// This is the main entry point for the Gray Logic HMI service. It polls a
// PLC over OPC UA, keeps the active alarm list and point tables in sync,
// writes the daily event log and serves everything to operator panels:
//   - REST and WebSocket for the panel UI
//   - MQTT for the plant bus
//   - InfluxDB for long-term telemetry
//
// Configuration is read from configs/config.yaml (GRAYLOGIC_CONFIG) and the
// machine's point tables from machine.points_file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nerrad567/gray-logic-hmi/internal/alarm"
	"github.com/nerrad567/gray-logic-hmi/internal/api"
	"github.com/nerrad567/gray-logic-hmi/internal/audit"
	"github.com/nerrad567/gray-logic-hmi/internal/auth"
	"github.com/nerrad567/gray-logic-hmi/internal/control"
	"github.com/nerrad567/gray-logic-hmi/internal/eventlog"
	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-hmi/internal/machine"
	"github.com/nerrad567/gray-logic-hmi/internal/monitor"
	"github.com/nerrad567/gray-logic-hmi/internal/plc"
	"github.com/nerrad567/gray-logic-hmi/internal/points"
	"github.com/nerrad567/gray-logic-hmi/internal/production"
	"github.com/nerrad567/gray-logic-hmi/internal/relay"
	"github.com/nerrad567/gray-logic-hmi/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

const (
	// viewStatistics is the view that shows production statistics.
	viewStatistics = "statistics"

	dispatcherQueue   = 64
	notifierQueue     = 256
	linkRetryInterval = 5 * time.Second
	pruneInterval     = 24 * time.Hour
	animateInterval   = 3 * time.Second
)

func main() {
	// Cancel on Ctrl+C and SIGTERM so deferred cleanup runs
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		err = runMigrate(ctx, os.Args[2:])
	} else {
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error { //nolint:gocognit,gocyclo,funlen // startup wiring reads top to bottom
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Gray Logic HMI",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version).ForMachine(cfg.Machine.ID)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	machineCfg, err := machine.LoadConfig(cfg.Machine.PointsFile)
	if err != nil {
		return fmt.Errorf("loading machine config: %w", err)
	}
	log.Info("machine config loaded",
		"path", cfg.Machine.PointsFile,
		"alarms", len(machineCfg.Alarms.Points),
		"infos", len(machineCfg.Infos.Points),
	)

	operators, err := buildDirectory(cfg.Security.Operators)
	if err != nil {
		return fmt.Errorf("loading operators: %w", err)
	}
	if operators.Len() == 0 {
		log.Warn("no operators configured; every login will be refused")
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS, migrations.Dir); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	if applied, pending, statusErr := db.GetMigrationStatus(ctx, migrations.FS, migrations.Dir); statusErr == nil {
		log.Info("database migrations complete",
			"applied", len(applied),
			"pending", len(pending),
			"schema_version", schemaVersion(applied),
		)
	} else {
		log.Warn("reading migration status failed", "error", statusErr)
	}

	link, err := plc.New(cfg.PLC)
	if err != nil {
		return fmt.Errorf("creating PLC link: %w", err)
	}
	if o, ok := link.(*plc.OPCUA); ok {
		o.SetLogger(log.Component("plc"))
	}
	defer func() {
		log.Info("closing PLC link")
		if closeErr := link.Close(context.WithoutCancel(ctx)); closeErr != nil {
			log.Error("error closing PLC link", "error", closeErr)
		}
	}()

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT, cfg.Machine.ID)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log.Component("mqtt"))
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected", "subscriptions", mqttClient.Subscriptions())
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB, cfg.Machine.ID)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Background goroutines owned by run. Cancelled and awaited before
	// the clients they use are closed.
	bgCtx, stopBackground := context.WithCancel(ctx)
	var bg sync.WaitGroup
	defer func() {
		stopBackground()
		bg.Wait()
	}()

	if connectErr := link.Connect(ctx); connectErr != nil {
		log.Warn("PLC not reachable, retrying in background", "driver", cfg.PLC.Driver, "error", connectErr)
		bg.Add(1)
		go func() {
			defer bg.Done()
			retryConnect(bgCtx, link, log)
		}()
	} else {
		log.Info("PLC link connected", "driver", cfg.PLC.Driver, "endpoint", cfg.PLC.Endpoint)
	}

	if sim, ok := link.(*plc.Simulator); ok && cfg.PLC.SimulateAlarms {
		bg.Add(1)
		go func() {
			defer bg.Done()
			sim.Animate(bgCtx, animateInterval, machineCfg.Alarms.Summary, machineCfg.Alarms.Addresses())
		}()
		log.Info("simulated alarms enabled")
	}

	// Event log and active list
	evlog, err := eventlog.New(eventlog.Config{
		Root:        cfg.EventLog.Root,
		Device:      cfg.Machine.Name,
		ReadRetries: cfg.EventLog.ReadRetries,
		RetryDelay:  cfg.EventLog.RetryDelayDuration(),
	})
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}
	evlog.SetLogger(log.Component("eventlog"))
	log.Info("event log ready", "dir", evlog.Dir())

	state := alarm.NewState(evlog)
	state.SetLogger(log.Component("alarm"))

	archive, err := production.New(production.Config{
		Root:        cfg.Production.Root,
		RecordFiles: cfg.Production.RecordFiles,
		Encoding:    cfg.Production.Encoding,
		Retry: eventlog.Retry{
			Attempts: cfg.EventLog.ReadRetries,
			Delay:    cfg.EventLog.RetryDelayDuration(),
		},
	})
	if err != nil {
		return fmt.Errorf("opening production archive: %w", err)
	}
	archive.SetLogger(log.Component("production"))
	log.Info("production archive ready",
		"root", cfg.Production.Root,
		"record_files", len(archive.Files()),
	)

	history := alarm.NewSQLiteHistory(db, cfg.Machine.ID)
	auditRepo := audit.NewSQLiteRepository(db)

	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled {
		recorder = metrics.New()
		if regErr := registerGauges(recorder, link, state); regErr != nil {
			return fmt.Errorf("registering metrics: %w", regErr)
		}
		if influxClient != nil {
			regErr := recorder.CounterFunc("influxdb_write_failures_total", "Telemetry batches rejected by InfluxDB.", func() float64 {
				return float64(influxClient.WriteFailures())
			})
			if regErr != nil {
				return fmt.Errorf("registering metrics: %w", regErr)
			}
		}
	}

	controls := control.NewService(link, machineCfg.Controls(), auditRepo)
	controls.SetLogger(log.Component("control"))
	if recorder != nil {
		controls.SetMetrics(recorder)
	}

	views := []string{viewStatistics}
	for name := range machineCfg.Tables() {
		views = append(views, name)
	}
	visibility := monitor.NewVisibility(views...)
	visibility.OnChange(func(view string) {
		log.Debug("visible view changed", "view", view)
	})

	tables := make(map[string]*points.Table)
	for name, pts := range machineCfg.Tables() {
		tables[name] = points.NewTable(name, pts)
	}
	statistics := points.NewStatisticsSink()

	// API server. The hub exists from here on so it can be registered as
	// an observer before any session starts.
	health := map[string]api.HealthChecker{
		"database": db,
		"plc":      link,
	}
	if mqttClient != nil {
		health["mqtt"] = mqttClient
	}
	if influxClient != nil {
		health["influxdb"] = influxClient
	}

	apiServer, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Security:   cfg.Security,
		Logger:     log.Component("api"),
		Machine:    cfg.Machine.ID,
		Operators:  operators,
		Alarms:     state,
		EventLog:   evlog,
		History:    history,
		Production: archive,
		Tables:     tables,
		Statistics: statistics,
		Visibility: visibility,
		Control:    controls,
		AuditRepo:  auditRepo,
		Metrics:    recorder,
		Link:       link,
		Health:     health,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	hub := apiServer.Hub()

	// Fan-out of alarm edges
	notifier := alarm.NewNotifier(notifierQueue)
	notifier.SetLogger(log.Component("notifier"))
	notifier.Register("history", history)
	notifier.Register("websocket", hub)
	if recorder != nil {
		notifier.Register("metrics", alarm.HandlerFunc(func(_ context.Context, ev alarm.Event) error {
			recorder.ObserveAlarmEdge(ev.Record.Kind.Key(), edgeName(ev.Type), ev.ActiveCount)
			return nil
		}))
	}
	state.Observe(notifier.Notify)

	for _, t := range tables {
		t.Observe(hub.PublishChanges)
	}
	statistics.Observe(hub.PublishStatistics)

	if mqttClient != nil {
		bus := relay.NewBus(mqttClient, state)
		bus.SetLogger(log.Component("relay"))
		bus.SetCommander(controls)
		notifier.Register("mqtt", bus)
		for _, t := range tables {
			t.Observe(bus.PublishChanges)
		}
		statistics.Observe(bus.PublishStatistics)

		bg.Add(1)
		go func() {
			defer bg.Done()
			if runErr := bus.Run(bgCtx); runErr != nil {
				log.Error("MQTT relay stopped", "error", runErr)
			}
		}()
	}

	if influxClient != nil {
		telemetry := relay.NewTelemetry(influxClient)
		notifier.Register("influxdb", telemetry)
		for _, t := range tables {
			t.Observe(telemetry.RecordChanges)
		}
		statistics.Observe(telemetry.RecordStatistics)
	}

	bg.Add(1)
	go func() {
		defer bg.Done()
		if runErr := notifier.Run(bgCtx); runErr != nil {
			log.Error("alarm notifier stopped", "error", runErr)
		}
	}()

	if cfg.Database.HistoryRetentionDays > 0 {
		retention := time.Duration(cfg.Database.HistoryRetentionDays) * 24 * time.Hour
		bg.Add(1)
		go func() {
			defer bg.Done()
			pruneHistory(bgCtx, history, retention, log)
		}()
	}

	// Sessions. The dispatcher must outlive the supervisor: sessions are
	// cancelled and awaited before it stops.
	dispatcher := monitor.NewDispatcher(dispatcherQueue)
	dispatcher.SetLogger(log.Component("dispatcher"))
	dispatcher.Start()
	defer func() {
		log.Info("stopping dispatcher")
		dispatcher.Stop()
	}()

	supervisor := monitor.NewSupervisor()
	supervisor.SetLogger(log.Component("monitor"))
	defer func() {
		log.Info("stopping monitor sessions")
		supervisor.StopAll()
	}()

	var loopMetrics monitor.Metrics
	if recorder != nil {
		loopMetrics = recorder
	}
	base := monitor.Loop{
		Link:           link,
		ActiveInterval: cfg.Monitor.ActiveDuration(),
		IdleInterval:   cfg.Monitor.IdleDuration(),
		Dispatcher:     dispatcher,
		Metrics:        loopMetrics,
		Logger:         log.Component("monitor"),
	}

	for _, l := range sessionLoops(base, machineCfg, state, tables, statistics, visibility, cfg.Monitor, log) {
		supervisor.Start(bgCtx, l.Name, l)
	}
	log.Info("monitor sessions started", "sessions", supervisor.Names())

	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred cleanup runs in reverse order:
	// 1. API server
	// 2. Monitor sessions, then the dispatcher
	// 3. Notifier, relay and pruning goroutines
	// 4. InfluxDB, MQTT, PLC link
	// 5. Database

	log.Info("Gray Logic HMI stopped")
	return nil
}

// sessionLoops builds one loop per subsystem: alarms and infos always
// active, point tables and statistics gated by view visibility.
func sessionLoops(
	base monitor.Loop,
	mc *machine.Config,
	state *alarm.State,
	tables map[string]*points.Table,
	statistics *points.StatisticsSink,
	visibility *monitor.Visibility,
	mcfg config.MonitorConfig,
	log *logging.Logger,
) []*monitor.Loop {
	var loops []*monitor.Loop

	events := []struct {
		kind alarm.Kind
		list machine.EventListConfig
	}{
		{alarm.KindAlarm, mc.Alarms},
		{alarm.KindInfo, mc.Infos},
	}
	for _, ev := range events {
		if len(ev.list.Points) == 0 {
			continue
		}
		sub := alarm.NewSubsystem(ev.kind, ev.list.Descriptors(), state)
		sub.SetLogger(log.Component("alarm"))

		l := base
		l.Name = ev.kind.Key() + "s"
		l.Addresses = ev.list.Addresses()
		l.IsActive = monitor.Always
		l.Sink = sub
		if ev.list.Summary != "" {
			gate := alarm.NewSummaryGate(base.Link, ev.list.Summary)
			gate.SetLogger(log.Component("alarm"))
			l.Gate = gate
		}
		loops = append(loops, &l)
	}

	for name, t := range tables {
		if t.Len() == 0 {
			continue
		}
		l := base
		l.Name = name
		l.Addresses = t.Addresses()
		l.IsActive = visibility.IsActive(name)
		l.Sink = t
		loops = append(loops, &l)
	}

	if addrs := mc.Statistics.List(); len(addrs) > 0 {
		l := base
		l.Name = viewStatistics
		l.Addresses = addrs
		l.ActiveInterval = mcfg.StatisticsDuration()
		l.IsActive = visibility.IsActive(viewStatistics)
		l.Sink = statistics
		loops = append(loops, &l)
	}

	return loops
}

// buildDirectory converts configured operators into login accounts.
func buildDirectory(ops []config.OperatorConfig) (*auth.Directory, error) {
	accounts := make([]auth.Account, len(ops))
	for i, op := range ops {
		accounts[i] = auth.Account{
			Username:     op.Username,
			PasswordHash: op.PasswordHash,
			Role:         auth.Role(op.Role),
		}
	}
	return auth.NewDirectory(accounts)
}

// registerGauges adds the scrape-time series that read live state.
func registerGauges(r *metrics.Recorder, link plc.Conn, state *alarm.State) error {
	err := r.GaugeFunc("plc_connected", "1 while the PLC link is up.", func() float64 {
		if link.IsConnected() {
			return 1
		}
		return 0
	})
	if err != nil {
		return err
	}
	return r.CounterFunc("eventlog_write_failures_total", "Failed event log appends.", func() float64 {
		return float64(state.JournalFailures())
	})
}

func edgeName(t alarm.EventType) string {
	if t == alarm.EventRaised {
		return "raised"
	}
	return "cleared"
}

// retryConnect keeps trying the first PLC connection until it succeeds or
// ctx is done. Once connected the driver reconnects on its own.
func retryConnect(ctx context.Context, link plc.Conn, log *logging.Logger) {
	ticker := time.NewTicker(linkRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := link.Connect(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Debug("PLC connect attempt failed", "error", err)
				}
				continue
			}
			log.Info("PLC link connected")
			return
		}
	}
}

// pruneHistory deletes mirrored alarm edges older than retention, once at
// startup and then daily.
func pruneHistory(ctx context.Context, h *alarm.SQLiteHistory, retention time.Duration, log *logging.Logger) {
	prune := func() {
		n, err := h.Prune(ctx, retention)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn("alarm history prune failed", "error", err)
			}
			return
		}
		if n > 0 {
			log.Info("alarm history pruned", "rows", n, "retention", retention)
		}
	}

	prune()
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prune()
		}
	}
}

// runMigrate handles "graylogic-hmi migrate [up|down|status]" against the
// configured database without starting the service.
func runMigrate(ctx context.Context, args []string) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	action := "status"
	if len(args) > 0 {
		action = args[0]
	}
	return migrateCommand(ctx, db, action, os.Stdout)
}

// migrateCommand runs one migration action and prints the resulting status.
func migrateCommand(ctx context.Context, db *database.DB, action string, w io.Writer) error {
	switch action {
	case "up":
		if err := db.Migrate(ctx, migrations.FS, migrations.Dir); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
	case "down":
		if err := db.MigrateDown(ctx, migrations.FS, migrations.Dir); err != nil {
			return fmt.Errorf("rolling back migration: %w", err)
		}
	case "status":
	default:
		return fmt.Errorf("unknown migrate action %q (want up, down or status)", action)
	}

	applied, pending, err := db.GetMigrationStatus(ctx, migrations.FS, migrations.Dir)
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	for _, r := range applied {
		fmt.Fprintf(w, "applied  %s  %s\n", r.Version, r.AppliedAt.Format(time.RFC3339))
	}
	for _, m := range pending {
		fmt.Fprintf(w, "pending  %s  %s\n", m.Version, m.Name)
	}
	return nil
}

// schemaVersion is the newest applied migration, or "none".
func schemaVersion(applied []database.MigrationRecord) string {
	if len(applied) == 0 {
		return "none"
	}
	return applied[len(applied)-1].Version
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the infrastructure connections are healthy. The
// PLC link is not checked: the service runs, and reports degraded, while
// the controller is unreachable.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (may be nil if disabled)
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First unhealthy component, or nil
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
