package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"uppercase INFO", "INFO", slog.LevelInfo},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"mixed case Debug", "Debug", slog.LevelDebug},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLoggerFormats(t *testing.T) {
	tests := []struct {
		name   string
		format string
	}{
		{"text", "text"},
		{"pretty", "pretty"},
		{"json", "json"},
		{"unknown falls back to text", "xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger("info", tt.format, &buf)
			if logger == nil {
				t.Fatal("NewLogger returned nil")
			}
			logger.Info("hello", "key", "value")
			if buf.Len() == 0 {
				t.Error("expected log output, got none")
			}
		})
	}
}

func TestNewLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", "text", &buf)

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug message logged at info level: %q", buf.String())
	}

	logger.Info("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("info message missing from output: %q", buf.String())
	}
}

func TestNewLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("debug", "json", &buf)
	logger.Debug("export cycle", "measures", 12)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "export cycle" {
		t.Errorf("msg = %v, want %q", entry["msg"], "export cycle")
	}
	if entry["measures"] != float64(12) {
		t.Errorf("measures = %v, want 12", entry["measures"])
	}
}
