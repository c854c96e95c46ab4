// Package retry holds the one retry policy used by every network-facing
// component: a fixed attempt bound, a growing delay, and a fatal-error
// escape hatch for failures that retrying cannot fix.
package retry

import (
	"context"
	"errors"
	"time"
)

// Fatal marks an error as not worth retrying (a bot challenge, a
// misconfigured endpoint). Wrap with AsFatal, test with IsFatal.
type Fatal struct {
	Err error
}

func (f *Fatal) Error() string { return f.Err.Error() }
func (f *Fatal) Unwrap() error { return f.Err }

// AsFatal wraps err so Do stops immediately instead of retrying.
func AsFatal(err error) error {
	if err == nil {
		return nil
	}
	return &Fatal{Err: err}
}

// IsFatal reports whether err was marked fatal.
func IsFatal(err error) bool {
	var f *Fatal
	return errors.As(err, &f)
}

// Policy describes how a call is retried. Backoff multiplies the delay
// after each failed attempt; 1.0 keeps it fixed.
type Policy struct {
	Attempts int
	Delay    time.Duration
	Backoff  float64
}

// Do runs fn up to p.Attempts times, sleeping p.Delay (scaled by
// p.Backoff after each failure) between attempts. A fatal error or a
// cancelled context stops the loop at once. The last error is returned
// unwrapped from its Fatal marker.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			if p.Backoff > 1 {
				delay = time.Duration(float64(delay) * p.Backoff)
			}
		}
		err = fn()
		if err == nil {
			return nil
		}
		var f *Fatal
		if errors.As(err, &f) {
			return f.Err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}
