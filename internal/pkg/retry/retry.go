// Package retry runs an operation with bounded exponential backoff. Only
// errors the caller marks retryable are attempted again; everything else
// returns immediately.
package retry

import (
	"context"
	"time"
)

type Policy struct {
	Attempts int
	BaseWait time.Duration
	MaxWait  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Attempts: 3, BaseWait: time.Second, MaxWait: 30 * time.Second}
}

// Do runs fn up to p.Attempts times, doubling the wait between attempts.
// retryable decides which errors earn another attempt; a nil retryable
// retries everything. The last error is returned when attempts exhaust.
func Do(ctx context.Context, p Policy, fn func() error, retryable func(error) bool) error {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	wait := p.BaseWait
	if wait <= 0 {
		wait = time.Second
	}

	var err error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if attempt == p.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
		if p.MaxWait > 0 && wait > p.MaxWait {
			wait = p.MaxWait
		}
	}
	return err
}
