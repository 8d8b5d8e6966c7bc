package mqtt

import "github.com/sweeney/relay-timer/internal/indicator"

// IndicatorDriver mirrors indicator output onto an MQTT topic.
type IndicatorDriver struct {
	pub   *RealPublisher
	topic string
}

// Send queues c as a retained QoS 0 "#rrggbb" message and returns at once.
// Colors set while the broker is unreachable are dropped rather than
// replayed.
func (d *IndicatorDriver) Send(c indicator.RGB) error {
	_ = d.pub.enqueue(message{
		topic:     d.topic,
		payload:   []byte(c.Hex()),
		retained:  true,
		transient: true,
	})
	return nil
}
