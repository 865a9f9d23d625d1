// Package control writes operator commands to the controller.
//
// Buttons send SetTrue on press and SetFalse on release; numeric fields
// send SetValue with the text the operator typed, converted to the
// control's declared mode. A write is refused while the link is down.
// Every attempt, successful or not, is audited.
package control
