package telemetry

import (
	"log/slog"
	"os"
)

// InitSlog installs the process-wide slog handler. debug toggles the
// level down to LevelDebug, which also turns on restyutil's full
// request/response logging.
func InitSlog(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
