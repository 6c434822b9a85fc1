package logger

import (
	"log"
	"log/slog"
)

// New returns a stdlib *log.Logger that writes through base at the given level, tagged with
// the component. It serves libraries that only accept a printf-style logger.
func New(base *slog.Logger, component string, level slog.Level) *log.Logger {
	if base == nil {
		base = slog.Default()
	}
	return slog.NewLogLogger(base.With("component", component).Handler(), level)
}
