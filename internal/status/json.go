package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/relay-timer/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string     `json:"event,omitempty"`
	Reason        string     `json:"reason,omitempty"`
	Ready         bool       `json:"ready"`
	DelayMs       uint32     `json:"delay_ms"`
	Delay         string     `json:"delay"`
	Relay         RelayJSON  `json:"relay"`
	Indicator     string     `json:"indicator"`
	LastOutcome   string     `json:"last_outcome,omitempty"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	StartTime     string     `json:"start_time"`
	Timestamp     string     `json:"timestamp"`
	MQTT          MQTTStatus `json:"mqtt"`
	Counts        CountsJSON `json:"counts"`
	Config        ConfigJSON `json:"config"`
}

// RelayJSON reports the relay output state.
type RelayJSON struct {
	Active      bool   `json:"active"`
	ActivatedAt string `json:"activated_at,omitempty"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of outcome counts.
type CountsJSON struct {
	Completed     int `json:"completed"`
	Cancelled     int `json:"cancelled"`
	RelayFaults   int `json:"relay_faults"`
	Accepted      int `json:"accepted"`
	Rejected      int `json:"rejected"`
	StoreFailures int `json:"store_failures"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Profile   string `json:"profile"`
	MinMs     uint32 `json:"min_delay_ms"`
	MaxMs     uint32 `json:"max_delay_ms"`
	StepMs    uint32 `json:"step_ms"`
	WiggleUs  int64  `json:"wiggle_us"`
	ActiveLow bool   `json:"active_low"`
	Store     string `json:"store"`
	Broker    string `json:"broker,omitempty"`
	HTTPAddr  string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Ready:         snap.Ready,
		DelayMs:       snap.DelayMillis,
		Delay:         logic.FormatDelay(snap.DelayMillis),
		Relay:         RelayJSON{Active: snap.RelayActive},
		Indicator:     snap.Indicator.Hex(),
		LastOutcome:   string(snap.LastOutcome),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Completed:     snap.Counts.Completed,
			Cancelled:     snap.Counts.Cancelled,
			RelayFaults:   snap.Counts.RelayFaults,
			Accepted:      snap.Counts.Accepted,
			Rejected:      snap.Counts.Rejected,
			StoreFailures: snap.Counts.StoreFailures,
		},
		Config: ConfigJSON{
			Profile:   snap.Config.Profile,
			MinMs:     snap.Config.MinMillis,
			MaxMs:     snap.Config.MaxMillis,
			StepMs:    snap.Config.StepMillis,
			WiggleUs:  snap.Config.WiggleMicro,
			ActiveLow: snap.Config.ActiveLow,
			Store:     snap.Config.Store,
			Broker:    snap.Config.Broker,
			HTTPAddr:  snap.Config.HTTPAddr,
		},
	}
	if snap.RelayActive && !snap.ActivatedAt.IsZero() {
		inner.Relay.ActivatedAt = snap.ActivatedAt.UTC().Format(time.RFC3339)
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
