// Package logger builds slog loggers for drift commands and services.
//
// Commands default to a human-readable text handler on stdout; long-running
// surfaces (the API server) switch to JSON with WithJSON, and interactive
// CLI paths use WithPretty for colorized charmbracelet output.
package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	source  bool
	writers []io.Writer
}

// New constructs a *slog.Logger from the given options. With no options it
// logs Info and above as text to stdout.
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		level:   slog.LevelInfo,
		writers: []io.Writer{os.Stdout},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var w io.Writer
	switch len(cfg.writers) {
	case 0:
		w = os.Stdout
	case 1:
		w = cfg.writers[0]
	default:
		w = io.MultiWriter(cfg.writers...)
	}

	return slog.New(cfg.handler(w))
}

func (c *config) handler(w io.Writer) slog.Handler {
	if c.pretty {
		lvl := charmlog.InfoLevel
		if c.level <= slog.LevelDebug {
			lvl = charmlog.DebugLevel
		}
		return charmlog.NewWithOptions(w, charmlog.Options{
			Level:           lvl,
			ReportCaller:    c.source,
			ReportTimestamp: true,
		})
	}

	hopts := &slog.HandlerOptions{
		Level:     c.level,
		AddSource: c.source,
	}
	if c.json {
		return slog.NewJSONHandler(w, hopts)
	}
	return slog.NewTextHandler(w, hopts)
}

// Nop returns a logger that discards everything. Components take it as
// their default so callers only wire a real logger when they want output.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
