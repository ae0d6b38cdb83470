package main

import (
	"log/slog"
	"os"
)

// logger is safe to use before initLogger runs.
var logger = slog.Default()

// initLogger installs a text handler on stderr and makes it the default so
// stray log.* calls end up in the same place.
func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}
