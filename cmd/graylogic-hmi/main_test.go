package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-hmi/internal/alarm"
	"github.com/nerrad567/gray-logic-hmi/internal/auth"
	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-hmi/internal/infrastructure/metrics"
	"github.com/nerrad567/gray-logic-hmi/internal/machine"
	"github.com/nerrad567/gray-logic-hmi/internal/monitor"
	"github.com/nerrad567/gray-logic-hmi/internal/plc"
	"github.com/nerrad567/gray-logic-hmi/internal/points"
	"github.com/nerrad567/gray-logic-hmi/migrations"
)

const testPoints = `
system:
  start: GVL.bStart
alarms:
  summary: GVL.nSystemAlarm
  points:
    - address: GVL.aAlarm[0]
      message: Door open
      station: Loader
infos:
  points:
    - address: GVL.aInfo[0]
      message: Material low
io:
  inputs:
    - name: Door switch
      address: GVL.X0
parameters:
  - id: speed
    name: Line speed
    address: GVL.nSpeed
    mode: int16
statistics:
  running_time: Stat.fRun
  pause_time: Stat.fPause
  alarm_time: Stat.fAlarm
  down_time: Stat.fDown
  production_total: Stat.nTotal
  ng_count: Stat.nNG
`

// writeTestConfig writes a points file and a service config using the
// simulated driver into a temp dir and points GRAYLOGIC_CONFIG at it.
func writeTestConfig(t *testing.T, dbPath string, port int) {
	t.Helper()
	tmpDir := t.TempDir()

	pointsPath := filepath.Join(tmpDir, "points.yaml")
	if err := os.WriteFile(pointsPath, []byte(testPoints), 0o600); err != nil {
		t.Fatalf("failed to write points file: %v", err)
	}

	configContent := `
machine:
  id: press-01
  name: Press01
  points_file: "` + pointsPath + `"

plc:
  driver: simulated

monitor:
  active_interval: 20
  idle_interval: 50
  statistics_interval: 1

eventlog:
  root: "` + filepath.Join(tmpDir, "AlarmLog") + `"

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: warn
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: ` + strconv.Itoa(port) + `

security:
  jwt:
    secret: "test-secret-for-development-only-0123456789"
`
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv("GRAYLOGIC_CONFIG", configPath)
}

// ─── Run Tests ──────────────────────────────────────────────────────

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies config validation stops startup.
func TestRun_MissingDatabasePath(t *testing.T) {
	writeTestConfig(t, "", 19191)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
	if !strings.Contains(err.Error(), "database.path") {
		t.Errorf("error = %v, want database.path validation", err)
	}
}

// TestRun_MissingPointsFile verifies run fails before opening anything.
func TestRun_MissingPointsFile(t *testing.T) {
	writeTestConfig(t, filepath.Join(t.TempDir(), "hmi.db"), 19192)

	// Break the points path by rewriting the config.
	path := os.Getenv("GRAYLOGIC_CONFIG")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	broken := strings.Replace(string(data), "points.yaml", "missing.yaml", 1)
	if err := os.WriteFile(path, []byte(broken), 0o600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = run(ctx)
	if err == nil || !strings.Contains(err.Error(), "machine config") {
		t.Fatalf("run() error = %v, want machine config error", err)
	}
}

// TestRun_SimulatedStartupAndShutdown runs the full stack against the
// simulated PLC and stops it with the context.
func TestRun_SimulatedStartupAndShutdown(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "hmi.db")
	writeTestConfig(t, dbPath, 19193)

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run() did not return after cancellation")
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

// ─── Helper Tests ───────────────────────────────────────────────────

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv("GRAYLOGIC_CONFIG", "")

	if path := getConfigPath(); path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	expected := "/custom/path/config.yaml"
	t.Setenv("GRAYLOGIC_CONFIG", expected)

	if path := getConfigPath(); path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

func TestHealthCheck_OptionalClientsNil(t *testing.T) {
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	defer db.Close()

	if err := healthCheck(context.Background(), db, nil, nil); err != nil {
		t.Errorf("healthCheck() error = %v", err)
	}
}

func TestBuildDirectory(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	dir, err := buildDirectory([]config.OperatorConfig{
		{Username: "olga", PasswordHash: hash, Role: "operator"},
		{Username: "ada", PasswordHash: hash, Role: "admin"},
	})
	if err != nil {
		t.Fatalf("buildDirectory() error = %v", err)
	}
	if dir.Len() != 2 {
		t.Errorf("Len() = %d, want 2", dir.Len())
	}
	op, err := dir.Lookup("ada")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if op.Role != auth.RoleAdmin {
		t.Errorf("Role = %q, want admin", op.Role)
	}

	if _, err := buildDirectory([]config.OperatorConfig{
		{Username: "olga", PasswordHash: hash, Role: "superuser"},
	}); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestSessionLoops(t *testing.T) {
	mc, err := machine.Parse([]byte(testPoints))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	state := alarm.NewState(nil)
	tables := make(map[string]*points.Table)
	for name, pts := range mc.Tables() {
		tables[name] = points.NewTable(name, pts)
	}
	visibility := monitor.NewVisibility("io", "parameters", viewStatistics)
	mcfg := config.MonitorConfig{ActiveInterval: 200, IdleInterval: 500, StatisticsInterval: 60}

	base := monitor.Loop{
		Link:           plc.NewSimulator(),
		ActiveInterval: mcfg.ActiveDuration(),
		IdleInterval:   mcfg.IdleDuration(),
	}
	loops := sessionLoops(base, mc, state, tables, points.NewStatisticsSink(), visibility, mcfg, logging.Discard())

	byName := make(map[string]*monitor.Loop, len(loops))
	for _, l := range loops {
		byName[l.Name] = l
	}
	for _, name := range []string{"alarms", "infos", "io", "parameters", viewStatistics} {
		if byName[name] == nil {
			t.Errorf("missing session %q", name)
		}
	}
	if _, ok := byName["axes"]; ok {
		t.Error("empty axes table should have no session")
	}

	if byName["alarms"].Gate == nil {
		t.Error("alarms session should be gated by its summary counter")
	}
	if byName["infos"].Gate != nil {
		t.Error("infos session has no summary counter and should not be gated")
	}
	if !byName["alarms"].IsActive() {
		t.Error("alarm sessions should always be active")
	}

	if byName["io"].IsActive() {
		t.Error("io session should idle while no view is visible")
	}
	if err := visibility.Set("io"); err != nil {
		t.Fatal(err)
	}
	if !byName["io"].IsActive() {
		t.Error("io session should be active while its view is visible")
	}
	if byName[viewStatistics].IsActive() {
		t.Error("statistics session should idle while io is visible")
	}

	if got := byName[viewStatistics].ActiveInterval; got != time.Minute {
		t.Errorf("statistics interval = %v, want 1m", got)
	}
	if got := byName["io"].ActiveInterval; got != 200*time.Millisecond {
		t.Errorf("io interval = %v, want 200ms", got)
	}
}

func TestRegisterGauges(t *testing.T) {
	r := metrics.New()
	sim := plc.NewSimulator()
	state := alarm.NewState(nil)

	if err := registerGauges(r, sim, state); err != nil {
		t.Fatalf("registerGauges() error = %v", err)
	}
	if err := registerGauges(r, sim, state); err == nil {
		t.Error("registering twice should fail")
	}
}

func TestEdgeName(t *testing.T) {
	if got := edgeName(alarm.EventRaised); got != "raised" {
		t.Errorf("edgeName(raised) = %q", got)
	}
	if got := edgeName(alarm.EventCleared); got != "cleared" {
		t.Errorf("edgeName(cleared) = %q", got)
	}
}

func TestPruneHistory_StopsOnCancel(t *testing.T) {
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	defer db.Close()
	if err := db.Migrate(context.Background(), migrations.FS, migrations.Dir); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		pruneHistory(ctx, alarm.NewSQLiteHistory(db, "press-01"), time.Hour, logging.Discard())
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pruneHistory did not return after cancel")
	}
}

func TestRetryConnect_Simulator(t *testing.T) {
	sim := plc.NewSimulator()

	ctx, cancel := context.WithTimeout(context.Background(), linkRetryInterval+5*time.Second)
	defer cancel()

	retryConnect(ctx, sim, logging.Discard())
	if !sim.IsConnected() {
		t.Error("simulator should be connected after retryConnect returns")
	}
}

func TestMigrateCommand(t *testing.T) {
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	defer db.Close()
	ctx := context.Background()

	var out bytes.Buffer
	if err := migrateCommand(ctx, db, "up", &out); err != nil {
		t.Fatalf("migrate up error = %v", err)
	}
	if got := strings.Count(out.String(), "applied"); got != 2 {
		t.Errorf("after up: %d applied lines, want 2\n%s", got, out.String())
	}

	out.Reset()
	if err := migrateCommand(ctx, db, "down", &out); err != nil {
		t.Fatalf("migrate down error = %v", err)
	}
	if !strings.Contains(out.String(), "pending  20260301_091500") {
		t.Errorf("after down the audit migration should be pending:\n%s", out.String())
	}

	applied, _, err := db.GetMigrationStatus(ctx, migrations.FS, migrations.Dir)
	if err != nil {
		t.Fatal(err)
	}
	if got := schemaVersion(applied); got != "20260301_090000" {
		t.Errorf("schemaVersion() = %q, want 20260301_090000", got)
	}
	if got := schemaVersion(nil); got != "none" {
		t.Errorf("schemaVersion(nil) = %q, want none", got)
	}

	if err := migrateCommand(ctx, db, "sideways", &out); err == nil {
		t.Error("unknown action should fail")
	}
}
