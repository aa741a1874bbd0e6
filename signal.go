package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// forceExit is replaced in tests.
var forceExit = os.Exit

// shutdownContext cancels the returned context on the first SIGINT or
// SIGTERM. A move in flight then stops at its next stage and still restores
// its source on a detached context. A second signal abandons that work and
// exits with exitRecoveryFailed, since the library may be left mid-move.
func shutdownContext(parent context.Context, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("interrupted, finishing current library operation",
				slog.String("signal", sig.String()),
			)
			cancel()
		case <-ctx.Done():
			return
		}

		select {
		case sig := <-sigCh:
			logger.Error("interrupted again, exiting; check the move journal for unfinished moves",
				slog.String("signal", sig.String()),
			)
			forceExit(exitRecoveryFailed)
		case <-parent.Done():
			return
		}
	}()

	return ctx
}
