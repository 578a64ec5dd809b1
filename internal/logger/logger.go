// Package logger builds the slog loggers used across the engine: JSON in
// production, a colored single-line console format everywhere else.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const (
	formatJSON    = "json"
	formatConsole = "pretty"
)

// Logger wraps slog.Logger with a few helpers.
type Logger struct {
	*slog.Logger
}

// Config selects level, output and format. An empty Format is derived from
// Environment.
type Config struct {
	Writer      io.Writer
	Format      string
	Environment string
	Level       slog.Level
	AddSource   bool
}

// New builds a Logger from cfg.
func New(cfg Config) *Logger {
	out := cfg.Writer
	if out == nil {
		out = os.Stdout
	}

	format := cfg.Format
	if format == "" {
		format = formatConsole
		if cfg.Environment == "production" {
			format = formatJSON
		}
	}

	opts := &slog.HandlerOptions{
		Level:       cfg.Level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: shortSource,
	}

	var h slog.Handler
	switch format {
	case formatJSON:
		h = slog.NewJSONHandler(out, opts)
	default:
		h = NewPrettyHandler(out, opts)
	}
	return &Logger{Logger: slog.New(h)}
}

// shortSource trims source paths to the file name.
func shortSource(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.SourceKey {
		return a
	}
	if src, ok := a.Value.Any().(*slog.Source); ok {
		src.File = filepath.Base(src.File)
	}
	return a
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// WithError returns a logger carrying err under the "error" key.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.With(slog.String("error", err.Error()))}
}

// WithField returns a logger carrying one extra attribute.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{Logger: l.With(slog.Any(key, value))}
}

// Component returns the plain slog.Logger tagged with a component name.
// Services and stores receive this instead of the wrapper.
func (l *Logger) Component(name string) *slog.Logger {
	return l.With(slog.String("component", name))
}
