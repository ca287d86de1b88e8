// Package logger builds the zerolog logger shared by the CLI and the import
// pipeline, and carries it through a context.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type contextKey struct{}

// New returns a human-readable console logger writing to w at the given
// level ("debug", "info", "warn", "error"). An empty level means info.
func New(level string, w io.Writer) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("parsing log level: %w", err)
		}
		lvl = parsed
	}
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
	return zerolog.New(output).Level(lvl).With().Timestamp().Logger(), nil
}

// NewJSON returns a logger emitting one JSON object per line. Tests use it to
// assert on fields.
func NewJSON(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// WithContext stores log in ctx.
func WithContext(ctx context.Context, log zerolog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, log)
}

// FromContext returns the logger stored in ctx, or an info-level console
// logger on stderr.
func FromContext(ctx context.Context) zerolog.Logger {
	if log, ok := ctx.Value(contextKey{}).(zerolog.Logger); ok {
		return log
	}
	log, _ := New("", os.Stderr)
	return log
}
