package eventlog

import "errors"

var (
	// ErrDelimiterInField is returned when a field would break the CSV layout.
	ErrDelimiterInField = errors.New("eventlog: field contains a delimiter or line break")

	// ErrMalformedLine is returned when a stored line cannot be parsed.
	ErrMalformedLine = errors.New("eventlog: malformed line")
)
