package database

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WithShutdownSignals returns a context that is cancelled on SIGTERM or
// SIGINT. During a live purge this is the operator's abort path: the
// confirmation window ends early and nothing is deleted.
//
// onSignal, if non-nil, runs before cancellation. Call stop to release the
// signal handler once the run is over.
func WithShutdownSignals(parent context.Context, onSignal func(os.Signal)) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		select {
		case sig := <-sigChan:
			if onSignal != nil {
				onSignal(sig)
			}
			cancel()
		case <-ctx.Done():
			// Context was cancelled elsewhere
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
