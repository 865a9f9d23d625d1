package control

import "errors"

var (
	// ErrNotConnected is returned when the controller link is down.
	ErrNotConnected = errors.New("control: controller not connected")

	// ErrUnknownControl is returned for an ID that is not configured.
	ErrUnknownControl = errors.New("control: unknown control")

	// ErrNotBoolean is returned by SetTrue and SetFalse on a numeric control.
	ErrNotBoolean = errors.New("control: control is not boolean")

	// ErrInvalidValue is returned when SetValue cannot convert its input.
	ErrInvalidValue = errors.New("control: invalid value")
)
