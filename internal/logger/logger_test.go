// internal/logger/logger_test.go - Unit tests for logger setup
package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(Options{Level: "warn", Format: "json", Output: &buf})

	l.Info("hidden")
	l.Warn("unsupported geometry", "tag", "geometrycollection")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("Expected JSON output: %v", err)
	}
	if record["tag"] != "geometrycollection" {
		t.Errorf("Expected tag attribute, got %v", record["tag"])
	}
	if L() != l {
		t.Error("Expected L to return the configured logger")
	}
}

func TestSetup_Text(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(Options{Level: "debug", Format: "text", Output: &buf})

	l.Debug("resolved metadata", "projection", "OSMTILE")
	if !strings.Contains(buf.String(), "projection=OSMTILE") {
		t.Errorf("Expected text attribute, got %q", buf.String())
	}
}
