// Package logic contains the pure types shared by the relay timer's control
// components: outcomes, events and counters.
// This package has NO external dependencies (no GPIO, EEPROM, MQTT or time.Sleep).
package logic

import (
	"fmt"
	"time"
)

// Outcome is the result of one activation or one delay request.
type Outcome string

const (
	OutcomeAccepted     Outcome = "ACCEPTED"
	OutcomeRejected     Outcome = "OUT_OF_RANGE"
	OutcomeStoreFailure Outcome = "STORE_FAILURE"
	OutcomeCancelled    Outcome = "CANCELLED"
	OutcomeTimedOut     Outcome = "TIMED_OUT"
	OutcomeRelayFault   Outcome = "RELAY_FAULT"
)

// EventType identifies what the controller did.
type EventType string

const (
	EventBoot            EventType = "BOOT"
	EventActivationStart EventType = "ACTIVATION_START"
	EventActivationEnd   EventType = "ACTIVATION_END"
	EventDelayRequest    EventType = "DELAY_REQUEST"
)

// Event is emitted by the controller once per logical action.
type Event struct {
	Timestamp time.Time
	Type      EventType

	// Outcome is empty for BOOT and ACTIVATION_START.
	Outcome Outcome

	// DelayMillis is the delay in force after the action.
	DelayMillis uint32

	// RequestedMillis is the value asked for by a DELAY_REQUEST. It may be
	// outside the unsigned range when a decrement goes below zero.
	RequestedMillis int64

	// Elapsed is the measured relay-on time of an ACTIVATION_END.
	Elapsed time.Duration

	// Late is set when the deadline was first observed past the upper bound.
	Late bool
}

// Counts tracks the number of each outcome since startup.
type Counts struct {
	Completed     int
	Cancelled     int
	RelayFaults   int
	Accepted      int
	Rejected      int
	StoreFailures int
}

// Record increments the counter matching the event's outcome.
func (c *Counts) Record(e Event) {
	switch e.Outcome {
	case OutcomeTimedOut:
		c.Completed++
	case OutcomeCancelled:
		c.Cancelled++
	case OutcomeRelayFault:
		c.RelayFaults++
	case OutcomeAccepted:
		c.Accepted++
	case OutcomeRejected:
		c.Rejected++
	case OutcomeStoreFailure:
		c.StoreFailures++
	}
}

// FormatDelay renders a delay as "<seconds>.<tenths>s", truncating
// hundredths: 7850 -> "7.8s".
func FormatDelay(millis uint32) string {
	return fmt.Sprintf("%d.%ds", millis/1000, (millis%1000)/100)
}
