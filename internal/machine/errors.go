package machine

import "errors"

var (
	// ErrUnknownControl is returned when a control ID is not configured.
	ErrUnknownControl = errors.New("machine: unknown control")
)
