// Package logging builds the slog logger used by formfetch and the helpers
// that trace HTTP traffic through it.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// LevelTrace sits below slog.LevelDebug and carries full header and body dumps.
const LevelTrace = slog.Level(-8)

// LevelForVerbosity maps the count of -v flags to a level:
// 0=warn, 1=info, 2=debug, 3 or more=trace.
func LevelForVerbosity(v int) slog.Level {
	switch {
	case v <= 0:
		return slog.LevelWarn
	case v == 1:
		return slog.LevelInfo
	case v == 2:
		return slog.LevelDebug
	default:
		return LevelTrace
	}
}

// New returns a text logger writing to w at the level implied by verbosity.
// A nil writer means stderr.
func New(w io.Writer, verbosity int) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level: LevelForVerbosity(verbosity),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key != slog.LevelKey || len(groups) > 0 {
				return a
			}
			if lvl, ok := a.Value.Any().(slog.Level); ok && lvl < slog.LevelDebug {
				a.Value = slog.StringValue("TRACE")
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Trace logs at LevelTrace.
func Trace(logger *slog.Logger, msg string, args ...any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(context.Background(), LevelTrace, msg, args...)
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
