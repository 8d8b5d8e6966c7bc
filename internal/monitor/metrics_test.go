package monitor

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/relay-timer/internal/logic"
)

func TestObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Observe(logic.Event{Type: logic.EventBoot, DelayMillis: 7500})
	assert.Equal(t, 7500.0, testutil.ToFloat64(m.Delay))

	m.Observe(logic.Event{Type: logic.EventActivationStart, DelayMillis: 7500})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RelayActive))

	m.Observe(logic.Event{Type: logic.EventActivationEnd, Outcome: logic.OutcomeTimedOut, Elapsed: 7500 * time.Millisecond, Late: true})
	m.Observe(logic.Event{Type: logic.EventActivationEnd, Outcome: logic.OutcomeCancelled, Elapsed: time.Second})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.RelayActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Activations.WithLabelValues("TIMED_OUT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Activations.WithLabelValues("CANCELLED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LateDeadlines))
	assert.Equal(t, uint64(2), sampleCount(t, m.ActivationDuration))

	m.Observe(logic.Event{Type: logic.EventDelayRequest, Outcome: logic.OutcomeAccepted, DelayMillis: 7600})
	m.Observe(logic.Event{Type: logic.EventDelayRequest, Outcome: logic.OutcomeRejected, DelayMillis: 7600})
	assert.Equal(t, 7600.0, testutil.ToFloat64(m.Delay))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DelayRequests.WithLabelValues("ACCEPTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DelayRequests.WithLabelValues("OUT_OF_RANGE")))
}

func TestRelayFaultSkipsDuration(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Observe(logic.Event{Type: logic.EventActivationEnd, Outcome: logic.OutcomeRelayFault})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Activations.WithLabelValues("RELAY_FAULT")))
	assert.Equal(t, uint64(0), sampleCount(t, m.ActivationDuration))
}

func sampleCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, h.Write(&out))
	return out.GetHistogram().GetSampleCount()
}
