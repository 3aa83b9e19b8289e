package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{" DEBUG ", zerolog.DebugLevel, false},
		{"", zerolog.InfoLevel, false},
		{"trace", zerolog.NoLevel, true},
		{"fatal", zerolog.NoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if level != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, level, tt.expected)
			}
		})
	}
}

func TestParseLevel_ErrorListsLevels(t *testing.T) {
	_, err := ParseLevel("verbose")
	if err == nil {
		t.Fatal("Expected error")
	}
	for _, name := range Levels {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("Error %q should mention %q", err, name)
		}
	}
}

func TestSetup_UnknownLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	if _, err := Setup(Config{Level: "loud", Output: buf}); err == nil {
		t.Error("Expected Setup to reject an unknown level")
	}
}

func TestSetup_LevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		visible []string
		hidden  []string
	}{
		{level: "debug", visible: []string{"fetching page", "exported", "partial", "failed"}},
		{level: "info", visible: []string{"exported", "partial", "failed"}, hidden: []string{"fetching page"}},
		{level: "warn", visible: []string{"partial", "failed"}, hidden: []string{"fetching page", "exported"}},
		{level: "error", visible: []string{"failed"}, hidden: []string{"fetching page", "exported", "partial"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			if _, err := Setup(Config{Level: tt.level, Output: buf}); err != nil {
				t.Fatalf("Setup() error: %v", err)
			}

			logger := NewLogger("pipeline")
			logger.Debug().Msg("fetching page")
			logger.Info().Msg("exported")
			logger.Warn().Msg("partial")
			logger.Error().Msg("failed")

			output := buf.String()
			for _, msg := range tt.visible {
				if !strings.Contains(output, msg) {
					t.Errorf("Expected %q at level %s, got %q", msg, tt.level, output)
				}
			}
			for _, msg := range tt.hidden {
				if strings.Contains(output, msg) {
					t.Errorf("Did not expect %q at level %s", msg, tt.level)
				}
			}
		})
	}
}

func TestSetup_BaseFields(t *testing.T) {
	buf := &bytes.Buffer{}
	if _, err := Setup(Config{Level: "info", Output: buf, Version: "1.2.3"}); err != nil {
		t.Fatalf("Setup() error: %v", err)
	}

	logger := ForRun("pipeline", "run-123")
	logger.Info().Int("rows", 2).Msg("Run finished")

	var event map[string]any
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("Expected one JSON event, got %q: %v", buf.String(), err)
	}

	want := map[string]any{
		"app":       "api2xlsx",
		"version":   "1.2.3",
		"component": "pipeline",
		"run_id":    "run-123",
		"message":   "Run finished",
		"level":     "info",
	}
	for k, v := range want {
		if event[k] != v {
			t.Errorf("event[%q] = %v, want %v", k, event[k], v)
		}
	}
	if _, ok := event["time"]; !ok {
		t.Error("Expected a timestamp")
	}
}

func TestSetup_NoVersionField(t *testing.T) {
	buf := &bytes.Buffer{}
	if _, err := Setup(Config{Output: buf}); err != nil {
		t.Fatalf("Setup() error: %v", err)
	}

	logger := NewLogger("export")
	logger.Info().Msg("Workbook exported")

	if strings.Contains(buf.String(), `"version"`) {
		t.Errorf("Unexpected version field in %q", buf.String())
	}
	if !strings.Contains(buf.String(), `"component":"export"`) {
		t.Errorf("Expected component field in %q", buf.String())
	}
}

func TestSetup_PrettyOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := Setup(Config{Level: "info", Pretty: true, Output: buf})
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}

	logger.Info().Int("rows", 2).Msg("exported")

	output := buf.String()
	if strings.HasPrefix(output, "{") {
		t.Errorf("Expected console output, got JSON %q", output)
	}
	if !strings.Contains(output, "exported") || !strings.Contains(output, "rows=") {
		t.Errorf("Expected message and fields in console output, got %q", output)
	}
}
