// Package retry retries calls to flaky upstreams (detector, plagiarism
// service, email provider) with exponential backoff and jitter.
package retry

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"time"
)

// PermanentError wraps an error that should not be retried.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so that Do will not retry it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// DelayedError asks for the next attempt to wait at least Wait, typically
// because the upstream sent Retry-After.
type DelayedError struct {
	Err  error
	Wait time.Duration
}

func (e *DelayedError) Error() string { return e.Err.Error() }
func (e *DelayedError) Unwrap() error { return e.Err }

// After wraps err with a minimum wait before the next attempt.
func After(err error, wait time.Duration) error {
	if err == nil || wait <= 0 {
		return err
	}
	return &DelayedError{Err: err, Wait: wait}
}

// Policy describes how often and how patiently to retry.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	// MaxDelay caps a single sleep, including one asked for through After.
	// Zero means uncapped.
	MaxDelay time.Duration
	// OnRetry, if set, is called before each sleep with the 1-based number
	// of the attempt that just failed.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// sleep is swapped out in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do calls fn until it succeeds, returns a permanent error, ctx is done or
// p.Attempts calls have been made. The error returned is unwrapped from
// Permanent and After.
//
// The delay doubles on each retry with +-25% jitter.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := max(p.Attempts, 1)
	delay := p.BaseDelay

	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		var pe *PermanentError
		if errors.As(err, &pe) {
			return pe.Err
		}
		if attempt == attempts {
			break
		}

		wait := p.backoff(delay)
		var de *DelayedError
		if errors.As(err, &de) && de.Wait > wait {
			wait = de.Wait
		}
		if p.MaxDelay > 0 && wait > p.MaxDelay {
			wait = p.MaxDelay
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
		if serr := sleep(ctx, wait); serr != nil {
			return serr
		}
		delay *= 2
	}

	var de *DelayedError
	if errors.As(err, &de) {
		return de.Err
	}
	return err
}

func (p Policy) backoff(delay time.Duration) time.Duration {
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	jitter := delay / 4
	return delay - jitter + time.Duration(cryptoInt64n(int64(2*jitter+1)))
}

// cryptoInt64n returns a random int64 in [0, n) using crypto/rand.
func cryptoInt64n(n int64) int64 {
	if n <= 0 {
		return 0
	}
	var b [8]byte
	_, _ = rand.Read(b[:])
	v := binary.LittleEndian.Uint64(b[:]) >> 1
	return int64(v % uint64(n)) //nolint:gosec // n>0
}
