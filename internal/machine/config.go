package machine

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-hmi/internal/plc"
	"github.com/nerrad567/gray-logic-hmi/internal/points"
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Config is the root of the points file.
type Config struct {
	System     SystemConfig               `yaml:"system"`
	Alarms     EventListConfig            `yaml:"alarms"`
	Infos      EventListConfig            `yaml:"infos"`
	IO         IOConfig                   `yaml:"io"`
	Axes       []AxisConfig               `yaml:"axes"`
	Cylinders  []CylinderConfig           `yaml:"cylinders"`
	Parameters []ParameterConfig          `yaml:"parameters"`
	Statistics points.StatisticsAddresses `yaml:"statistics"`
}

// SystemConfig holds the machine-wide command bits.
type SystemConfig struct {
	Start string `yaml:"start"`
	Reset string `yaml:"reset"`
	Pause string `yaml:"pause"`
}

// EventListConfig is an ordered list of alarm or info points.
type EventListConfig struct {
	// Summary is the controller counter that changes whenever any point
	// of the list changes. Empty reads the list every cycle.
	Summary string       `yaml:"summary"`
	Points  []EventPoint `yaml:"points"`
}

// EventPoint binds a boolean address to its display text.
type EventPoint struct {
	Address string `yaml:"address"`
	Message string `yaml:"message"`

	// Station defaults to "unknown station".
	Station string `yaml:"station"`
}

// IOConfig lists the digital inputs and outputs.
type IOConfig struct {
	Inputs  []IOPoint `yaml:"inputs"`
	Outputs []IOPoint `yaml:"outputs"`
}

// IOPoint is one digital signal.
type IOPoint struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// AxisConfig describes one servo axis.
type AxisConfig struct {
	ID       string       `yaml:"id"`
	Name     string       `yaml:"name"`
	Status   AxisStatus   `yaml:"status"`
	Controls AxisControls `yaml:"controls"`

	// JogVelocity is a writable REAL.
	JogVelocity string `yaml:"jog_velocity"`
}

// AxisStatus are the read-only axis signals.
type AxisStatus struct {
	CurrentPosition string `yaml:"current_position"`
	Power           string `yaml:"power"`
	Busy            string `yaml:"busy"`
	Error           string `yaml:"error"`
	HomeDone        string `yaml:"home_done"`
	PosLimit        string `yaml:"pos_limit"`
	NegLimit        string `yaml:"neg_limit"`
	Origin          string `yaml:"origin"`
}

// AxisControls are the axis command bits.
type AxisControls struct {
	PowerOn string `yaml:"power_on"`
	JogP    string `yaml:"jog_p"`
	JogN    string `yaml:"jog_n"`
	Stop    string `yaml:"stop"`
	Home    string `yaml:"home"`
	Reset   string `yaml:"reset"`
}

// CylinderConfig describes one pneumatic cylinder.
type CylinderConfig struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Station string `yaml:"station"`

	// Home and Work are the command bits.
	Home string `yaml:"home"`
	Work string `yaml:"work"`

	HomeInput string `yaml:"home_input"`
	WorkInput string `yaml:"work_input"`
	HomeDone  string `yaml:"home_done"`
	WorkDone  string `yaml:"work_done"`
	Lock      string `yaml:"lock"`
	Error     string `yaml:"error"`
}

// ParameterConfig is a writable setpoint.
type ParameterConfig struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Address string   `yaml:"address"`
	Mode    plc.Mode `yaml:"mode"`
	Unit    string   `yaml:"unit"`
}

// LoadConfig reads and validates a points file.
//
// Parameters:
//   - path: Path to the YAML points file
//
// Returns:
//   - *Config: Validated configuration
//   - error: If the file cannot be read, parsed, or validation fails
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the service config
	if err != nil {
		return nil, fmt.Errorf("reading points file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a points document.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing points file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating points file: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	errs = append(errs, validateEventList("alarms", c.Alarms)...)
	errs = append(errs, validateEventList("infos", c.Infos)...)
	errs = append(errs, validateIO("io.inputs", c.IO.Inputs)...)
	errs = append(errs, validateIO("io.outputs", c.IO.Outputs)...)
	errs = append(errs, c.validateAxes()...)
	errs = append(errs, c.validateCylinders()...)
	errs = append(errs, c.validateParameters()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateEventList(section string, list EventListConfig) []string {
	var errs []string
	for i, p := range list.Points {
		if p.Address == "" {
			errs = append(errs, fmt.Sprintf("%s.points[%d].address is required", section, i))
		}
		if strings.TrimSpace(p.Message) == "" {
			errs = append(errs, fmt.Sprintf("%s.points[%d].message is required", section, i))
		}
		if hasDelimiter(p.Message) {
			errs = append(errs, fmt.Sprintf("%s.points[%d].message must not contain commas or line breaks", section, i))
		}
		if hasDelimiter(p.Station) {
			errs = append(errs, fmt.Sprintf("%s.points[%d].station must not contain commas or line breaks", section, i))
		}
	}
	return errs
}

func validateIO(section string, list []IOPoint) []string {
	var errs []string
	for i, p := range list {
		if p.Name == "" {
			errs = append(errs, fmt.Sprintf("%s[%d].name is required", section, i))
		}
		if p.Address == "" {
			errs = append(errs, fmt.Sprintf("%s[%d].address is required", section, i))
		}
	}
	return errs
}

func (c *Config) validateAxes() []string {
	var errs []string
	seen := make(map[string]bool)
	for i, a := range c.Axes {
		errs = append(errs, validateID(fmt.Sprintf("axes[%d]", i), a.ID, seen)...)
	}
	return errs
}

func (c *Config) validateCylinders() []string {
	var errs []string
	seen := make(map[string]bool)
	for i, cyl := range c.Cylinders {
		errs = append(errs, validateID(fmt.Sprintf("cylinders[%d]", i), cyl.ID, seen)...)
	}
	return errs
}

func (c *Config) validateParameters() []string {
	var errs []string
	seen := make(map[string]bool)
	for i, p := range c.Parameters {
		prefix := fmt.Sprintf("parameters[%d]", i)
		errs = append(errs, validateID(prefix, p.ID, seen)...)
		if p.Address == "" {
			errs = append(errs, prefix+".address is required")
		}
		if !p.Mode.Valid() {
			errs = append(errs, fmt.Sprintf("%s.mode %q is invalid (use bool, int16, int32, or float)", prefix, p.Mode))
		}
	}
	return errs
}

func validateID(prefix, id string, seen map[string]bool) []string {
	if id == "" {
		return []string{prefix + ".id is required"}
	}
	if !idPattern.MatchString(id) {
		return []string{fmt.Sprintf("%s.id %q must be lowercase letters, digits, '-' or '_'", prefix, id)}
	}
	if seen[id] {
		return []string{fmt.Sprintf("%s.id %q is duplicate", prefix, id)}
	}
	seen[id] = true
	return nil
}

func hasDelimiter(s string) bool {
	return strings.ContainsAny(s, ",\r\n")
}

// DuplicateDescriptors lists message/station pairs used by more than one
// point of the list. Such points clear each other's records.
func (l EventListConfig) DuplicateDescriptors() []string {
	count := make(map[[2]string]int)
	var order [][2]string
	for _, p := range l.Descriptors() {
		key := [2]string{p.Message, p.Station}
		if count[key] == 0 {
			order = append(order, key)
		}
		count[key]++
	}

	var dups []string
	for _, key := range order {
		if count[key] > 1 {
			dups = append(dups, key[0]+" @ "+key[1])
		}
	}
	return dups
}
