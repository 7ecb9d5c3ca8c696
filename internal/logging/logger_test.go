package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/claude/liftlog/internal/config"
)

// TestLevel verifies config level names map onto slog levels.
func TestLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for name, want := range tests {
		if got := Level(name); got != want {
			t.Errorf("Level(%q) = %v, want %v", name, got, want)
		}
	}
}

// TestNewHandlerJSON verifies the json format emits one JSON object per record
// and honors the level.
func TestNewHandlerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewHandler(&buf, config.LogConfig{Level: "warn", Format: "json"}))
	log.Info("dropped")
	log.Warn("kept", "sets", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if rec["msg"] != "kept" || rec["sets"] != float64(3) {
		t.Errorf("record = %v", rec)
	}
}

// TestNewWritesFile verifies that log.file routes records to the rotating file.
func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "liftlog.log")
	log, closer := New(config.LogConfig{Level: "info", Format: "text", File: path, MaxSizeMB: 1})
	log.Info("hello file")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Errorf("log file = %q, want it to contain the message", data)
	}
}
