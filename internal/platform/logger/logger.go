package logger

import (
	"log/slog"
	"os"
)

// New returns the process logger. Text by default; "json" for log
// aggregation environments.
func New(format string) *slog.Logger {
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, nil)
	} else {
		handler = slog.NewTextHandler(os.Stdout, nil)
	}
	return slog.New(handler)
}
