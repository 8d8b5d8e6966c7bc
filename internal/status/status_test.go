package status

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/relay-timer/internal/indicator"
	"github.com/sweeney/relay-timer/internal/logic"
)

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{Profile: "release", MinMillis: 100, MaxMillis: 50000, HTTPAddr: ":8080"}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.MaxMillis != 50000 {
		t.Errorf("Config.MaxMillis: got %d, want 50000", snap.Config.MaxMillis)
	}
	if snap.Ready {
		t.Error("expected Ready=false before boot")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestObserveActivationCycle(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tr.Observe(logic.Event{Type: logic.EventBoot, DelayMillis: 7500})
	tr.Observe(logic.Event{Type: logic.EventActivationStart, Timestamp: at, DelayMillis: 7500})

	snap := tr.Snapshot()
	if !snap.Ready {
		t.Error("expected Ready after BOOT")
	}
	if !snap.RelayActive {
		t.Error("expected RelayActive during activation")
	}
	if !snap.ActivatedAt.Equal(at) {
		t.Errorf("ActivatedAt: got %v, want %v", snap.ActivatedAt, at)
	}

	tr.Observe(logic.Event{Type: logic.EventActivationEnd, Outcome: logic.OutcomeCancelled, DelayMillis: 7500})

	snap = tr.Snapshot()
	if snap.RelayActive {
		t.Error("expected RelayActive=false after ACTIVATION_END")
	}
	if snap.LastOutcome != logic.OutcomeCancelled {
		t.Errorf("LastOutcome: got %s, want CANCELLED", snap.LastOutcome)
	}
	if snap.Counts.Cancelled != 1 {
		t.Errorf("Counts.Cancelled: got %d, want 1", snap.Counts.Cancelled)
	}
}

func TestObserveDelayRequest(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.Observe(logic.Event{Type: logic.EventDelayRequest, Outcome: logic.OutcomeAccepted, DelayMillis: 7600, RequestedMillis: 7600})
	tr.Observe(logic.Event{Type: logic.EventDelayRequest, Outcome: logic.OutcomeRejected, DelayMillis: 7600, RequestedMillis: 50100})

	snap := tr.Snapshot()
	if snap.DelayMillis != 7600 {
		t.Errorf("DelayMillis: got %d, want 7600", snap.DelayMillis)
	}
	if snap.LastOutcome != logic.OutcomeRejected {
		t.Errorf("LastOutcome: got %s, want OUT_OF_RANGE", snap.LastOutcome)
	}
	if snap.Counts.Accepted != 1 || snap.Counts.Rejected != 1 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}
}

func TestSendRecordsIndicator(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if err := tr.Send(indicator.NewRGB(0, 10, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tr.Snapshot().Indicator.Hex(); got != "#000a00" {
		t.Errorf("Indicator: got %s, want #000a00", got)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{StartTime: start, Now: start.Add(2*time.Hour + 30*time.Second)}

	if got := snap.Uptime(); got != 2*time.Hour+30*time.Second {
		t.Errorf("Uptime: got %v, want 2h0m30s", got)
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Observe(logic.Event{Type: logic.EventBoot, DelayMillis: 100})

	snap1 := tr.Snapshot()

	tr.Observe(logic.Event{Type: logic.EventDelayRequest, Outcome: logic.OutcomeAccepted, DelayMillis: 200})

	if snap1.DelayMillis != 100 {
		t.Error("snapshot should be a copy; DelayMillis was modified")
	}
	if snap1.Counts.Accepted != 0 {
		t.Error("snapshot should be a copy; Counts was modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Ready:         true,
		DelayMillis:   7850,
		Indicator:     indicator.NewRGB(0, 10, 0),
		LastOutcome:   logic.OutcomeTimedOut,
		Counts:        logic.Counts{Completed: 5, Cancelled: 2, Rejected: 1},
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config:        Config{Profile: "release", MinMillis: 100, MaxMillis: 50000, StepMillis: 100, Broker: "tcp://localhost:1883", HTTPAddr: ":8080"},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Status.Delay != "7.8s" {
		t.Errorf("Delay: got %q, want 7.8s", parsed.Status.Delay)
	}
	if parsed.Status.DelayMs != 7850 {
		t.Errorf("DelayMs: got %d, want 7850", parsed.Status.DelayMs)
	}
	if !parsed.Status.Ready {
		t.Error("expected Ready=true")
	}
	if parsed.Status.Indicator != "#000a00" {
		t.Errorf("Indicator: got %q", parsed.Status.Indicator)
	}
	if parsed.Status.UptimeSeconds != 900 {
		t.Errorf("UptimeSeconds: got %d, want 900", parsed.Status.UptimeSeconds)
	}
	if !parsed.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if parsed.Status.Counts.Completed != 5 || parsed.Status.Counts.Cancelled != 2 {
		t.Errorf("Counts: got %+v", parsed.Status.Counts)
	}
	if parsed.Status.Relay.ActivatedAt != "" {
		t.Errorf("ActivatedAt should be omitted while idle, got %q", parsed.Status.Relay.ActivatedAt)
	}
	if parsed.Status.Event != "" || parsed.Status.Reason != "" {
		t.Error("web format should omit event and reason")
	}
}

func TestFormatJSONActiveRelay(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		RelayActive: true,
		ActivatedAt: start.Add(time.Minute),
		StartTime:   start,
		Now:         start.Add(time.Minute + time.Second),
	}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !parsed.Status.Relay.Active {
		t.Error("expected relay active")
	}
	if parsed.Status.Relay.ActivatedAt != "2026-01-01T00:01:00Z" {
		t.Errorf("ActivatedAt: got %q", parsed.Status.Relay.ActivatedAt)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{StartTime: start, Now: start, DelayMillis: 100}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" {
		t.Errorf("Event: got %q, want SHUTDOWN", parsed.Status.Event)
	}
	if parsed.Status.Reason != "SIGTERM" {
		t.Errorf("Reason: got %q, want SIGTERM", parsed.Status.Reason)
	}
	if parsed.Status.Delay != "0.1s" {
		t.Errorf("Delay: got %q, want 0.1s", parsed.Status.Delay)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	data := FormatStatusEvent(Snapshot{StartTime: start, Now: start}, "STARTUP", "")

	var raw map[string]map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if _, ok := raw["status"]["reason"]; ok {
		t.Error("reason should be omitted when empty")
	}
	if raw["status"]["event"] != "STARTUP" {
		t.Errorf("event: got %v", raw["status"]["event"])
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Observe(logic.Event{Type: logic.EventDelayRequest, Outcome: logic.OutcomeAccepted, DelayMillis: uint32(i)})
			_ = tr.Send(indicator.NewRGB(uint8(i), 0, 0))
			tr.SetMQTTConnected(i%2 == 0)
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = snap.Uptime()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
