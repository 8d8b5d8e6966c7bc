package logic

import (
	"testing"
)

func TestFormatDelay(t *testing.T) {
	tests := []struct {
		millis uint32
		want   string
	}{
		{100, "0.1s"},
		{150, "0.1s"},
		{999, "0.9s"},
		{1000, "1.0s"},
		{7500, "7.5s"},
		{7800, "7.8s"},
		{7850, "7.8s"},
		{50000, "50.0s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatDelay(tt.millis); got != tt.want {
				t.Errorf("FormatDelay(%d): got %q, want %q", tt.millis, got, tt.want)
			}
		})
	}
}

func TestCountsRecord(t *testing.T) {
	var c Counts

	events := []Event{
		{Type: EventActivationEnd, Outcome: OutcomeTimedOut},
		{Type: EventActivationEnd, Outcome: OutcomeTimedOut},
		{Type: EventActivationEnd, Outcome: OutcomeCancelled},
		{Type: EventActivationEnd, Outcome: OutcomeRelayFault},
		{Type: EventDelayRequest, Outcome: OutcomeAccepted},
		{Type: EventDelayRequest, Outcome: OutcomeRejected},
		{Type: EventDelayRequest, Outcome: OutcomeRejected},
		{Type: EventDelayRequest, Outcome: OutcomeStoreFailure},
		{Type: EventActivationStart},
		{Type: EventBoot},
	}
	for _, e := range events {
		c.Record(e)
	}

	want := Counts{
		Completed:     2,
		Cancelled:     1,
		RelayFaults:   1,
		Accepted:      1,
		Rejected:      2,
		StoreFailures: 1,
	}
	if c != want {
		t.Errorf("counts: got %+v, want %+v", c, want)
	}
}
