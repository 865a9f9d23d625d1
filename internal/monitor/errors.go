package monitor

import "errors"

var (
	// ErrDispatcherStopped is returned by Dispatcher.Do after Stop.
	ErrDispatcherStopped = errors.New("monitor: dispatcher stopped")

	// ErrJobPanicked is returned by Dispatcher.Do when the job panicked.
	ErrJobPanicked = errors.New("monitor: dispatched job panicked")

	// ErrUnknownView is returned by Visibility.Set for an unregistered view.
	ErrUnknownView = errors.New("monitor: unknown view")
)
