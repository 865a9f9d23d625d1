// Package points holds the live values of the machine's display tables.
//
// A Table is fed by one monitor session. The baseline fills every slot;
// later cycles touch only the slots that changed. Observers get the
// changes of a cycle as one batch, on the dispatcher goroutine.
//
// Tables:
//
//	io          inputs and outputs
//	axes        axis status (position, power, busy, limits, error)
//	cylinders   cylinder status (in position, done, locks, error)
//	parameters  writable setpoints
//
// Statistics is a separate sink over the production counters. It derives
// the OK count from total and NG.
package points
