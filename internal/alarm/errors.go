package alarm

import "errors"

var (
	// ErrUnknownKind is returned when a kind string is neither alarm nor info.
	ErrUnknownKind = errors.New("alarm: unknown kind")

	// ErrNotifierStopped is returned by Notifier.Run when called twice.
	ErrNotifierStopped = errors.New("alarm: notifier already ran")
)
