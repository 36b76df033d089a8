// Package netretry provides the fixed retry sequence shared by the Copier
// and Validator stages for transient network errors (spec.md §4.3, §4.4).
package netretry

import (
	"errors"
	"os"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Delays is the fixed backoff sequence required by the spec: three
// retries at 1s, 3s, 5s. Not exponential, not jittered — an explicit
// sequence.
var Delays = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

// sequence implements backoff.BackOff over a fixed list of delays, stopping
// once exhausted.
type sequence struct {
	delays []time.Duration
	i      int
}

func (s *sequence) NextBackOff() time.Duration {
	if s.i >= len(s.delays) {
		return backoff.Stop
	}
	d := s.delays[s.i]
	s.i++
	return d
}

func (s *sequence) Reset() { s.i = 0 }

// retryableErrnos are the network error codes spec.md §4.3 names as
// transient and worth retrying.
var retryableErrnos = map[syscall.Errno]bool{
	syscall.EAGAIN:      true,
	syscall.ECONNRESET:  true,
	syscall.ETIMEDOUT:   true,
	syscall.EBUSY:       true,
	syscall.EIO:         true,
	syscall.ENETUNREACH: true,
	syscall.EPIPE:       true,
}

// IsRetryable reports whether err is one of the transient network errno
// codes this tool retries. Any other error (including plain local
// filesystem errors) is not retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return retryableErrnos[errno]
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		if errors.As(pathErr.Err, &errno) {
			return retryableErrnos[errno]
		}
	}
	return false
}

// Do runs op up to len(Delays)+1 times total, retrying only on
// IsRetryable errors, cleaning up via onRetry between attempts (used to
// unlink a partial temp file before each retry and before final failure,
// per spec.md §4.3).
func Do(op func() error, onRetry func()) error {
	attempt := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		if onRetry != nil {
			onRetry()
		}
		return err
	}

	err := backoff.Retry(attempt, &sequence{delays: Delays})
	if err != nil {
		if onRetry != nil {
			onRetry()
		}
	}
	return err
}
