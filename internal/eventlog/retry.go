package eventlog

import (
	"context"
	"errors"
	"io/fs"
	"time"
)

// Retry bounds how often a file read is attempted. The wait before attempt
// n+1 is Delay×n, so three attempts with 100ms wait 100ms then 200ms.
type Retry struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetry is used when a Retry field is zero.
var DefaultRetry = Retry{Attempts: defaultReadRetries, Delay: defaultRetryDelay}

func (r Retry) withDefaults() Retry {
	if r.Attempts <= 0 {
		r.Attempts = DefaultRetry.Attempts
	}
	if r.Delay <= 0 {
		r.Delay = DefaultRetry.Delay
	}
	return r
}

// ReadWithRetry calls read until it succeeds, the attempts are used up or
// ctx is done. A missing file (fs.ErrNotExist) is returned at once.
// onFailure, when set, sees every failed attempt.
//
// Returns the value of the first successful attempt, or the zero value and
// the error of the last one.
func ReadWithRetry[T any](ctx context.Context, r Retry, read func() (T, error), onFailure func(attempt int, err error)) (T, error) {
	r = r.withDefaults()

	var zero T
	var err error
	for attempt := 1; attempt <= r.Attempts; attempt++ {
		var v T
		v, err = read()
		if err == nil {
			return v, nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return zero, err
		}
		if onFailure != nil {
			onFailure(attempt, err)
		}
		if attempt == r.Attempts {
			break
		}

		t := time.NewTimer(r.Delay * time.Duration(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		case <-t.C:
		}
	}
	return zero, err
}
