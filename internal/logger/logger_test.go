package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
		ok   bool
	}{
		{"debug", zerolog.DebugLevel, true},
		{" WARN ", zerolog.WarnLevel, true},
		{"disabled", zerolog.Disabled, true},
		{"", zerolog.InfoLevel, false},
		{"loud", zerolog.InfoLevel, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNew_JSONFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{Level: "warn", JSON: true})

	log.Info().Msg("hidden")
	log.Warn().Str("bucket", "b1").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1:\n%s", len(lines), buf.String())
	}
	var ev map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev["message"] != "shown" || ev["bucket"] != "b1" || ev["level"] != "warn" {
		t.Errorf("unexpected event: %v", ev)
	}
}

func TestNew_InvalidLevelWarns(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{Level: "chatty"})

	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("level = %v, want info", log.GetLevel())
	}
	if !strings.Contains(buf.String(), "invalid log level") {
		t.Errorf("expected warning, got %q", buf.String())
	}
}

func TestNew_ConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, Options{Level: "info"})
	log.Info().Str("bucket", "b1").Msg("remediated")

	out := buf.String()
	for _, want := range []string{"INF", "remediated", "bucket=b1"} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q: %q", want, out)
		}
	}
}

func TestVerbose(t *testing.T) {
	for name, want := range map[string]bool{"trace": true, "DEBUG": true, "info": false, "error": false, "": false, "loud": false} {
		if got := Verbose(name); got != want {
			t.Errorf("Verbose(%q) = %v; want %v", name, got, want)
		}
	}
}
