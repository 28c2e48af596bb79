// Package logger configures the process-wide structured logger.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a JSON logger for production and a text logger otherwise.
func New(w io.Writer, production bool) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	if production {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// SetupDefault installs New(w, production) as the slog default.
func SetupDefault(w io.Writer, production bool) *slog.Logger {
	l := New(w, production)
	slog.SetDefault(l)
	return l
}
