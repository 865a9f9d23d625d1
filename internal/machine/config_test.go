package machine

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nerrad567/gray-logic-hmi/internal/alarm"
	"github.com/nerrad567/gray-logic-hmi/internal/plc"
)

const sampleYAML = `
system:
  start: GVL.bStart
  reset: GVL.bReset
alarms:
  summary: GVL.nSystemAlarm
  points:
    - address: GVL.aAlarm[0]
      message: Door open
      station: Loader
    - address: GVL.aAlarm[1]
      message: Air pressure low
infos:
  points:
    - address: GVL.aInfo[0]
      message: Material low
      station: Feeder
io:
  inputs:
    - name: Door switch
      address: GVL.X0
  outputs:
    - name: Lamp
      address: GVL.Y0
axes:
  - id: x
    name: X axis
    status:
      current_position: Axis_X.fActPos
      error: Axis_X.bError
    controls:
      jog_p: Axis_X.bJogP
      stop: Axis_X.bStop
    jog_velocity: Axis_X.fJogVel
cylinders:
  - id: clamp
    name: Clamp
    home: Cyl_Clamp.bHome
    work: Cyl_Clamp.bWork
    work_input: Cyl_Clamp.bWorkIn
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

func mustParse(t *testing.T, doc string) *Config {
	t.Helper()
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return cfg
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Alarms.Summary != "GVL.nSystemAlarm" || len(cfg.Alarms.Points) != 2 {
		t.Errorf("alarms = %+v", cfg.Alarms)
	}
	if len(cfg.Statistics.List()) != 6 {
		t.Errorf("statistics = %+v", cfg.Statistics)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig() on a missing file should fail")
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("alarms: [")); err == nil {
		t.Error("Parse() should fail on invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{"missing address", "alarms:\n  points:\n    - message: x\n", "alarms.points[0].address is required"},
		{"missing message", "infos:\n  points:\n    - address: a\n", "infos.points[0].message is required"},
		{"comma in message", "alarms:\n  points:\n    - address: a\n      message: \"a,b\"\n", "message must not contain commas"},
		{"newline in station", "alarms:\n  points:\n    - address: a\n      message: m\n      station: \"s\\nt\"\n", "station must not contain commas"},
		{"io name", "io:\n  inputs:\n    - address: X0\n", "io.inputs[0].name is required"},
		{"axis id", "axes:\n  - name: X\n", "axes[0].id is required"},
		{"axis id pattern", "axes:\n  - id: X Axis\n", "must be lowercase"},
		{"cylinder duplicate", "cylinders:\n  - id: c\n  - id: c\n", "cylinders[1].id \"c\" is duplicate"},
		{"parameter mode", "parameters:\n  - id: p\n    address: a\n    mode: string\n", "parameters[0].mode \"string\" is invalid"},
		{"parameter address", "parameters:\n  - id: p\n    mode: bool\n", "parameters[0].address is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestEventList(t *testing.T) {
	cfg := mustParse(t, sampleYAML)

	addrs := cfg.Alarms.Addresses()
	if len(addrs) != 2 || addrs[1] != "GVL.aAlarm[1]" {
		t.Errorf("Addresses() = %v", addrs)
	}

	desc := cfg.Alarms.Descriptors()
	if desc[0] != (alarm.Descriptor{Message: "Door open", Station: "Loader"}) {
		t.Errorf("Descriptors()[0] = %+v", desc[0])
	}
	if desc[1].Station != alarm.DefaultStation {
		t.Errorf("missing station = %q, want default", desc[1].Station)
	}
}

func TestDuplicateDescriptors(t *testing.T) {
	cfg := mustParse(t, `
alarms:
  points:
    - {address: a, message: Jam}
    - {address: b, message: Door open, station: Loader}
    - {address: c, message: Jam, station: "unknown station"}
    - {address: d, message: Door open, station: Loader}
`)
	dups := cfg.Alarms.DuplicateDescriptors()
	want := []string{"Jam @ unknown station", "Door open @ Loader"}
	if len(dups) != len(want) {
		t.Fatalf("DuplicateDescriptors() = %v, want %v", dups, want)
	}
	for i := range want {
		if dups[i] != want[i] {
			t.Errorf("DuplicateDescriptors()[%d] = %q, want %q", i, dups[i], want[i])
		}
	}
}

func TestTables(t *testing.T) {
	cfg := mustParse(t, sampleYAML)
	tables := cfg.Tables()

	io := tables[TableIO]
	if len(io) != 2 || io[0].Group != GroupInput || io[1].Group != GroupOutput {
		t.Errorf("io = %+v", io)
	}

	axes := tables[TableAxes]
	if len(axes) != 3 {
		t.Fatalf("axes = %+v, want 3 configured signals", axes)
	}
	if axes[0].Group != "x" || axes[0].Name != "current_position" || axes[2].Name != "jog_velocity" {
		t.Errorf("axes = %+v", axes)
	}

	cyl := tables[TableCylinders]
	if len(cyl) != 1 || cyl[0].Name != "work_input" || cyl[0].Group != "clamp" {
		t.Errorf("cylinders = %+v", cyl)
	}

	params := tables[TableParameters]
	if len(params) != 1 || params[0].Name != "speed" {
		t.Errorf("parameters = %+v", params)
	}

	empty := mustParse(t, "system:\n  start: s\n")
	if n := len(empty.Tables()); n != 0 {
		t.Errorf("Tables() on empty config = %d tables, want 0", n)
	}
}

func TestControls(t *testing.T) {
	cfg := mustParse(t, sampleYAML)

	tests := []struct {
		id   string
		kind ControlKind
		mode plc.Mode
		addr string
	}{
		{"system.start", ControlSystem, plc.ModeBool, "GVL.bStart"},
		{"axis.x.jog_p", ControlAxis, plc.ModeBool, "Axis_X.bJogP"},
		{"axis.x.jog_velocity", ControlParameter, plc.ModeFloat, "Axis_X.fJogVel"},
		{"cylinder.clamp.work", ControlCylinder, plc.ModeBool, "Cyl_Clamp.bWork"},
		{"parameter.speed", ControlParameter, plc.ModeInt16, "GVL.nSpeed"},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			ctl, err := cfg.Control(tt.id)
			if err != nil {
				t.Fatalf("Control() error = %v", err)
			}
			if ctl.Kind != tt.kind || ctl.Mode != tt.mode || ctl.Address != tt.addr {
				t.Errorf("Control() = %+v", ctl)
			}
		})
	}

	if _, err := cfg.Control("system.pause"); !errors.Is(err, ErrUnknownControl) {
		t.Errorf("unconfigured control error = %v, want ErrUnknownControl", err)
	}

	ids := cfg.ControlIDs()
	if len(ids) != 8 || ids[0] != "axis.x.jog_p" {
		t.Errorf("ControlIDs() = %v", ids)
	}
}
