package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/claude/liftlog/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New builds the process logger. With log.file set, output goes to a
// rotating file as well as stdout. The returned closer releases the file.
func New(cfg config.LogConfig) (*slog.Logger, io.Closer) {
	var out io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stdout, lj)
		closer = lj
	}

	return slog.New(NewHandler(out, cfg)), closer
}

// NewHandler returns a text or JSON handler writing to w at the configured level.
func NewHandler(w io.Writer, cfg config.LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: Level(cfg.Level)}
	if cfg.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Level maps a config level name to slog. Unknown names mean info.
func Level(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
