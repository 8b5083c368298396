// Package storage abstracts the physical image store. The gateway reads
// raw bytes by resolved path and never writes.
package storage

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/JMAlloway/Check-sub001/internal/apperr"
)

// ErrNotFound is returned when a resolved path has no object behind it.
var ErrNotFound = apperr.New(apperr.CodeNotFound, "image not found in storage")

// Provider returns raw image bytes for a resolved physical path.
type Provider interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
	// Probe checks reachability for health monitoring.
	Probe(ctx context.Context) error
	Name() string
}

const (
	retryAttempts = 3
	retryBaseWait = 100 * time.Millisecond
)

// fetchWithRetry retries transient failures a bounded number of times with
// exponential backoff. Not-found and authorization-class failures are
// final on the first attempt.
func fetchWithRetry(ctx context.Context, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			wait := retryBaseWait << (attempt - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
		data, err := fetch(ctx)
		if err == nil {
			return data, nil
		}
		if !isTransient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func isTransient(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// A share that dropped mid-read surfaces as a plain I/O error; retrying
	// those is the whole point of the bounded loop.
	return errors.Is(err, errTransient)
}

// errTransient lets providers tag errors they know to be retryable.
var errTransient = errors.New("transient storage error")

// MarkTransient wraps err so fetchWithRetry will retry it.
func MarkTransient(err error) error {
	return errors.Join(errTransient, err)
}
