package machine

import (
	"fmt"
	"sort"

	"github.com/nerrad567/gray-logic-hmi/internal/plc"
)

// ControlKind groups controls for permission checks.
type ControlKind string

const (
	ControlSystem    ControlKind = "system"
	ControlAxis      ControlKind = "axis"
	ControlCylinder  ControlKind = "cylinder"
	ControlParameter ControlKind = "parameter"
)

// Control is one writable address.
//
// IDs are dotted paths: system.start, axis.x.jog_p, cylinder.clamp.work,
// parameter.speed. An axis jog velocity is axis.<id>.jog_velocity and
// counts as a parameter.
type Control struct {
	ID      string      `json:"id"`
	Label   string      `json:"label"`
	Kind    ControlKind `json:"kind"`
	Address string      `json:"address"`
	Mode    plc.Mode    `json:"mode"`
}

// Controls returns every configured control keyed by ID.
func (c *Config) Controls() map[string]Control {
	out := make(map[string]Control)
	add := func(id, label string, kind ControlKind, address string, mode plc.Mode) {
		if address == "" {
			return
		}
		out[id] = Control{ID: id, Label: label, Kind: kind, Address: address, Mode: mode}
	}

	add("system.start", "Start", ControlSystem, c.System.Start, plc.ModeBool)
	add("system.reset", "Reset", ControlSystem, c.System.Reset, plc.ModeBool)
	add("system.pause", "Pause", ControlSystem, c.System.Pause, plc.ModeBool)

	for _, a := range c.Axes {
		prefix := "axis." + a.ID + "."
		add(prefix+"power_on", a.Name+" power on", ControlAxis, a.Controls.PowerOn, plc.ModeBool)
		add(prefix+"jog_p", a.Name+" jog +", ControlAxis, a.Controls.JogP, plc.ModeBool)
		add(prefix+"jog_n", a.Name+" jog -", ControlAxis, a.Controls.JogN, plc.ModeBool)
		add(prefix+"stop", a.Name+" stop", ControlAxis, a.Controls.Stop, plc.ModeBool)
		add(prefix+"home", a.Name+" home", ControlAxis, a.Controls.Home, plc.ModeBool)
		add(prefix+"reset", a.Name+" reset", ControlAxis, a.Controls.Reset, plc.ModeBool)
		add(prefix+"jog_velocity", a.Name+" jog velocity", ControlParameter, a.JogVelocity, plc.ModeFloat)
	}

	for _, cyl := range c.Cylinders {
		prefix := "cylinder." + cyl.ID + "."
		add(prefix+"home", cyl.Name+" home", ControlCylinder, cyl.Home, plc.ModeBool)
		add(prefix+"work", cyl.Name+" work", ControlCylinder, cyl.Work, plc.ModeBool)
	}

	for _, p := range c.Parameters {
		add("parameter."+p.ID, p.Name, ControlParameter, p.Address, p.Mode)
	}
	return out
}

// Control looks up one control by ID.
func (c *Config) Control(id string) (Control, error) {
	ctl, ok := c.Controls()[id]
	if !ok {
		return Control{}, fmt.Errorf("%w: %s", ErrUnknownControl, id)
	}
	return ctl, nil
}

// ControlIDs returns the sorted control IDs.
func (c *Config) ControlIDs() []string {
	controls := c.Controls()
	ids := make([]string, 0, len(controls))
	for id := range controls {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
