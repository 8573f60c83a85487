// Package clock provides helpers for time-related operations.
package clock

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrBackoffStopped is returned by Wait when the policy allows no more attempts.
var ErrBackoffStopped = errors.New("backoff stopped")

// SleepFunc matches SleepWithContext and lets services substitute sleeping in tests.
type SleepFunc func(context.Context, time.Duration) error

// SleepWithContext waits for the duration or returns early if the context is canceled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Wait sleeps for the next interval of policy using sleep.
func Wait(ctx context.Context, sleep SleepFunc, policy backoff.BackOff) error {
	d := policy.NextBackOff()
	if d == backoff.Stop {
		return ErrBackoffStopped
	}
	return sleep(ctx, d)
}

// NewBackoff returns an exponential policy starting at initial and capped at
// maxInterval, allowing maxRetries retries.
func NewBackoff(initial, maxInterval time.Duration, maxRetries uint64) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = maxInterval
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, maxRetries)
}
