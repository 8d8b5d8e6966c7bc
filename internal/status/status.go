// Package status provides a thread-safe status tracker for the relay-timer
// daemon. It is written by the controller's observers and read by HTTP
// handlers and MQTT lifecycle events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/relay-timer/internal/indicator"
	"github.com/sweeney/relay-timer/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Profile     string
	MinMillis   uint32
	MaxMillis   uint32
	StepMillis  uint32
	WiggleMicro int64
	ActiveLow   bool
	Store       string
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Ready         bool
	DelayMillis   uint32
	RelayActive   bool
	ActivatedAt   time.Time
	LastOutcome   logic.Outcome
	Indicator     indicator.RGB
	Counts        logic.Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Observe folds a controller event into the snapshot.
func (t *Tracker) Observe(e logic.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.DelayMillis = e.DelayMillis
	t.snap.Counts.Record(e)
	switch e.Type {
	case logic.EventBoot:
		t.snap.Ready = true
	case logic.EventActivationStart:
		t.snap.RelayActive = true
		t.snap.ActivatedAt = e.Timestamp
	case logic.EventActivationEnd:
		t.snap.RelayActive = false
		t.snap.LastOutcome = e.Outcome
	case logic.EventDelayRequest:
		t.snap.LastOutcome = e.Outcome
	}
}

// Send records the color currently shown on the indicator. It lets the
// tracker sit alongside the real drivers in an indicator.Multi.
func (t *Tracker) Send(c indicator.RGB) error {
	t.mu.Lock()
	t.snap.Indicator = c
	t.mu.Unlock()
	return nil
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
