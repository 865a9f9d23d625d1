package plc

import "errors"

// Domain-specific errors for controller access.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when reading or writing without a session.
	ErrNotConnected = errors.New("plc: not connected")

	// ErrConnectionFailed is returned when the session cannot be established.
	ErrConnectionFailed = errors.New("plc: connection failed")

	// ErrEmptyBatch is returned when ReadBatch is called with no addresses.
	ErrEmptyBatch = errors.New("plc: empty address list")

	// ErrInvalidAddress is returned when an address cannot be turned into a node ID.
	ErrInvalidAddress = errors.New("plc: invalid address")

	// ErrShapeMismatch is returned when the server answers with a different
	// number of values than requested.
	ErrShapeMismatch = errors.New("plc: result length does not match request")

	// ErrReadFailed is returned when any point in a batch cannot be read.
	ErrReadFailed = errors.New("plc: read failed")

	// ErrWriteFailed is returned when the server rejects a write.
	ErrWriteFailed = errors.New("plc: write failed")

	// ErrUnsupportedDriver is returned by New for an unknown plc.driver.
	ErrUnsupportedDriver = errors.New("plc: unsupported driver")

	// ErrInvalidValue is returned when a raw string cannot be converted to
	// the point's declared mode.
	ErrInvalidValue = errors.New("plc: invalid value for mode")
)
