// Package logger wraps zerolog with printf-style helpers that take a context.
package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

var base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

// InitLogging configures the global logger. Output goes to stdout and, when
// path is set, to a JSON log file as well.
func InitLogging(path, level string) error {
	var writers []io.Writer
	writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		writers = append(writers, f)
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	base = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	return nil
}

// WithFields returns a context whose log lines carry the given key/value pair.
func WithFields(ctx context.Context, key, value string) context.Context {
	l := From(ctx).With().Str(key, value).Logger()
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger attached to ctx, or the global one.
func From(ctx context.Context) zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
			return l
		}
	}
	return base
}

func DebugLog(ctx context.Context, format string, args ...interface{}) {
	l := From(ctx)
	l.Debug().Msgf(format, args...)
}

func InfoLog(ctx context.Context, format string, args ...interface{}) {
	l := From(ctx)
	l.Info().Msgf(format, args...)
}

func WarnLog(ctx context.Context, format string, args ...interface{}) {
	l := From(ctx)
	l.Warn().Msgf(format, args...)
}

func ErrorLog(ctx context.Context, format string, args ...interface{}) {
	l := From(ctx)
	l.Error().Msgf(format, args...)
}
