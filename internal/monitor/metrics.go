// Package monitor exposes the controller's outcomes as Prometheus metrics.
package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sweeney/relay-timer/internal/logic"
)

// Metrics holds every collector the daemon exports.
type Metrics struct {
	// Activations counts finished activations, partitioned by outcome.
	Activations *prometheus.CounterVec
	// DelayRequests counts increment/decrement requests, partitioned by outcome.
	DelayRequests *prometheus.CounterVec
	// Delay is the delay in force.
	Delay prometheus.Gauge
	// RelayActive is 1 while the relay is energized.
	RelayActive prometheus.Gauge
	// ActivationDuration is the measured relay-on time.
	ActivationDuration prometheus.Histogram
	// LateDeadlines counts activations whose deadline was observed past the window.
	LateDeadlines prometheus.Counter
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_timer_activations_total",
			Help: "Finished relay activations by outcome",
		}, []string{"outcome"}),
		DelayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_timer_delay_requests_total",
			Help: "Delay change requests by outcome",
		}, []string{"outcome"}),
		Delay: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_timer_delay_millis",
			Help: "Relay on-time currently in force",
		}),
		RelayActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_timer_relay_active",
			Help: "1 while the relay output is asserted",
		}),
		ActivationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_timer_activation_duration_seconds",
			Help:    "Measured relay on-time",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 7.5, 10, 20, 30, 50},
		}),
		LateDeadlines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_timer_late_deadlines_total",
			Help: "Activations whose deadline was first observed past the tolerance window",
		}),
	}

	reg.MustRegister(
		m.Activations,
		m.DelayRequests,
		m.Delay,
		m.RelayActive,
		m.ActivationDuration,
		m.LateDeadlines,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe updates the metrics for one controller event.
func (m *Metrics) Observe(e logic.Event) {
	switch e.Type {
	case logic.EventBoot:
		m.Delay.Set(float64(e.DelayMillis))
	case logic.EventActivationStart:
		m.RelayActive.Set(1)
	case logic.EventActivationEnd:
		m.RelayActive.Set(0)
		m.Activations.WithLabelValues(string(e.Outcome)).Inc()
		if e.Outcome != logic.OutcomeRelayFault {
			m.ActivationDuration.Observe(e.Elapsed.Seconds())
		}
		if e.Late {
			m.LateDeadlines.Inc()
		}
	case logic.EventDelayRequest:
		m.DelayRequests.WithLabelValues(string(e.Outcome)).Inc()
		m.Delay.Set(float64(e.DelayMillis))
	}
}
