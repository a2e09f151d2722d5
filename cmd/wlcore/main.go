// wlcore runs a headless Wayland compositor.
package main

import (
	"context"
	"os"
	"os/signal"

	"deedles.dev/wlcore/internal/logger"
	"golang.org/x/sys/unix"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("exiting", "err", err)
		os.Exit(1)
	}
}
