package machine

import (
	"github.com/nerrad567/gray-logic-hmi/internal/alarm"
	"github.com/nerrad567/gray-logic-hmi/internal/points"
)

// Table names.
const (
	TableIO         = "io"
	TableAxes       = "axes"
	TableCylinders  = "cylinders"
	TableParameters = "parameters"
)

// Point groups of the io and parameters tables.
const (
	GroupInput     = "input"
	GroupOutput    = "output"
	GroupParameter = "parameter"
)

// Addresses returns the read list of the event points, in order.
func (l EventListConfig) Addresses() []string {
	out := make([]string, len(l.Points))
	for i, p := range l.Points {
		out[i] = p.Address
	}
	return out
}

// Descriptors returns the display text of the event points, in order,
// with the default station filled in.
func (l EventListConfig) Descriptors() []alarm.Descriptor {
	out := make([]alarm.Descriptor, len(l.Points))
	for i, p := range l.Points {
		out[i] = alarm.Descriptor{Message: p.Message, Station: p.Station}.Normalize()
	}
	return out
}

// IOPoints returns inputs followed by outputs.
func (c *Config) IOPoints() []points.Point {
	out := make([]points.Point, 0, len(c.IO.Inputs)+len(c.IO.Outputs))
	for _, p := range c.IO.Inputs {
		out = append(out, points.Point{Name: p.Name, Group: GroupInput, Address: p.Address})
	}
	for _, p := range c.IO.Outputs {
		out = append(out, points.Point{Name: p.Name, Group: GroupOutput, Address: p.Address})
	}
	return out
}

// AxisPoints returns the configured status signals of every axis. The
// group is the axis ID and the name is the signal.
func (c *Config) AxisPoints() []points.Point {
	var out []points.Point
	for _, a := range c.Axes {
		out = appendNamed(out, a.ID, []namedAddress{
			{"current_position", a.Status.CurrentPosition},
			{"power", a.Status.Power},
			{"busy", a.Status.Busy},
			{"error", a.Status.Error},
			{"home_done", a.Status.HomeDone},
			{"pos_limit", a.Status.PosLimit},
			{"neg_limit", a.Status.NegLimit},
			{"origin", a.Status.Origin},
			{"jog_velocity", a.JogVelocity},
		})
	}
	return out
}

// CylinderPoints returns the configured status signals of every cylinder.
func (c *Config) CylinderPoints() []points.Point {
	var out []points.Point
	for _, cyl := range c.Cylinders {
		out = appendNamed(out, cyl.ID, []namedAddress{
			{"home_input", cyl.HomeInput},
			{"work_input", cyl.WorkInput},
			{"home_done", cyl.HomeDone},
			{"work_done", cyl.WorkDone},
			{"lock", cyl.Lock},
			{"error", cyl.Error},
		})
	}
	return out
}

// ParameterPoints returns one point per parameter, named by its ID.
func (c *Config) ParameterPoints() []points.Point {
	out := make([]points.Point, 0, len(c.Parameters))
	for _, p := range c.Parameters {
		out = append(out, points.Point{Name: p.ID, Group: GroupParameter, Address: p.Address})
	}
	return out
}

// Tables returns the point lists keyed by table name. Empty tables are left out.
func (c *Config) Tables() map[string][]points.Point {
	tables := map[string][]points.Point{
		TableIO:         c.IOPoints(),
		TableAxes:       c.AxisPoints(),
		TableCylinders:  c.CylinderPoints(),
		TableParameters: c.ParameterPoints(),
	}
	for name, list := range tables {
		if len(list) == 0 {
			delete(tables, name)
		}
	}
	return tables
}

type namedAddress struct {
	name    string
	address string
}

func appendNamed(out []points.Point, group string, fields []namedAddress) []points.Point {
	for _, f := range fields {
		if f.address == "" {
			continue
		}
		out = append(out, points.Point{Name: f.name, Group: group, Address: f.address})
	}
	return out
}
