package telemetry

import (
	"log/slog"
	"os"
)

// InitSlog sets the default slog handler for CLIs and tests. debug
// enables LevelDebug, which also turns on request/response dumps in
// instrumented resty clients.
func InitSlog(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
