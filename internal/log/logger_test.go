package log

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestReconfigureLevelAndComponent(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Level: "warn", Output: &buf, Service: "test"})
	t.Cleanup(func() { Reconfigure(Config{}) })

	l := WithComponent("relay")
	l.Info().Msg("hidden")
	l.Warn().Int("delay_ms", 7500).Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %s", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if entry["component"] != "relay" {
		t.Errorf("component: got %v, want relay", entry["component"])
	}
	if entry["service"] != "test" {
		t.Errorf("service: got %v, want test", entry["service"])
	}
	if entry["message"] != "shown" {
		t.Errorf("message: got %v, want shown", entry["message"])
	}
}

func TestConfigureIsFirstWins(t *testing.T) {
	var first, second bytes.Buffer
	Reconfigure(Config{Output: &first})
	t.Cleanup(func() { Reconfigure(Config{}) })

	Configure(Config{Output: &second})
	base := Base()
	base.Info().Msg("hello")

	if first.Len() == 0 {
		t.Error("expected output on the first writer")
	}
	if second.Len() != 0 {
		t.Error("Configure after Reconfigure should not replace the logger")
	}
}
