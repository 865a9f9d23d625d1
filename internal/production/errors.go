package production

import "errors"

var (
	// ErrUnknownRecordFile is returned for a record file index outside Files.
	ErrUnknownRecordFile = errors.New("production: unknown record file")

	// ErrUnknownEncoding is returned by New for an unsupported encoding name.
	ErrUnknownEncoding = errors.New("production: unknown encoding")
)
