// Package retry provides the bounded retry-with-backoff policy shared by all
// upstream fetchers.
package retry

import (
	"context"
	"errors"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// defaultInitial is used when a policy leaves Initial unset.
const defaultInitial = 100 * time.Millisecond

// Policy retries an operation up to MaxAttempts times, doubling the wait
// between attempts from Initial up to Max.
type Policy struct {
	MaxAttempts int
	Initial     time.Duration
	Max         time.Duration
}

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so that Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was wrapped with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// backoff builds a fresh exponential schedule; go-retry backoffs are stateful
// and must not be shared between calls.
func (p Policy) backoff() goretry.Backoff {
	initial := p.Initial
	if initial <= 0 {
		initial = defaultInitial
	}
	b := goretry.NewExponential(initial)
	if p.Max > 0 {
		b = goretry.WithCappedDuration(p.Max, b)
	}

	retries := 0
	if p.MaxAttempts > 1 {
		retries = p.MaxAttempts - 1
	}
	return goretry.WithMaxRetries(uint64(retries), b)
}

// Do runs fn until it succeeds, returns a permanent error, the attempts are
// exhausted or ctx is done. The last error is returned with any Permanent
// wrapper removed.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return goretry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		return goretry.RetryableError(err)
	})
}
