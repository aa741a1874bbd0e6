package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/wnmlab/sharepoint-go/internal/mover"
)

// exitRecoveryFailed is returned when a move left the library in an
// indeterminate state and needs manual attention.
const exitRecoveryFailed = 3

var errRecoveryFailed = mover.ErrRecoveryFailed

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := shutdownContext(context.Background(), logger)

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		exitOnError(err)
	}
}
