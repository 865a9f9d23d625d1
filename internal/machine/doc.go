// Package machine loads the machine's point tables.
//
// The tables live in their own YAML file (machine.points_file in the main
// configuration) so that they can be shipped with the PLC program:
//
//	system:
//	  start: GVL.bStart
//	alarms:
//	  summary: GVL.nSystemAlarm
//	  points:
//	    - address: GVL.aAlarm[0]
//	      message: Door open
//	      station: Loader
//	axes:
//	  - id: x
//	    name: X axis
//	    status:
//	      current_position: Axis_X.fActPos
//	    controls:
//	      jog_p: Axis_X.bJogP
//
// Order matters: the position of a point in its list is its slot in the
// monitor snapshot. Changing the file requires restarting the sessions.
package machine
