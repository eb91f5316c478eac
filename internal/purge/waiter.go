package purge

import (
	"context"
	"time"
)

// Waiter blocks for the confirmation window before a live delete. It
// returns ErrAborted if the operator interrupts the wait.
type Waiter interface {
	Wait(ctx context.Context, d time.Duration) error
}

// WaiterFunc adapts a function to Waiter.
type WaiterFunc func(ctx context.Context, d time.Duration) error

// Wait implements Waiter.
func (f WaiterFunc) Wait(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// SleepWaiter waits in real time. Cancelling ctx (the CLI does so on
// SIGINT/SIGTERM) ends the wait with ErrAborted.
type SleepWaiter struct{}

// Wait implements Waiter.
func (SleepWaiter) Wait(ctx context.Context, d time.Duration) error {
	if ctx.Err() != nil {
		return ErrAborted
	}
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ErrAborted
	case <-timer.C:
		return nil
	}
}

// NoWait returns immediately unless ctx is already cancelled.
var NoWait Waiter = WaiterFunc(func(ctx context.Context, _ time.Duration) error {
	if ctx.Err() != nil {
		return ErrAborted
	}
	return nil
})
