package mqtt

import (
	"sync"

	"github.com/sweeney/relay-timer/internal/indicator"
	"github.com/sweeney/relay-timer/internal/logic"
)

// Message is one publish as a subscriber would receive it.
type Message struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// FakePublisher is an in-memory broker connection. It formats and routes
// events, lifecycle messages and indicator colors the same way RealPublisher
// does, so tests can assert on what a subscriber would see. It is safe for
// concurrent use.
//
// Events and system events are recorded whether or not the fake is
// connected, since the real publisher holds and replays them. Indicator
// colors are dropped while disconnected, as they are for real.
type FakePublisher struct {
	topics Topics

	mu        sync.Mutex
	messages  []Message
	events    []logic.Event
	system    []SystemEvent
	connected bool
	closed    bool
	err       error
}

// NewFakePublisher creates a disconnected FakePublisher routing to topics.
func NewFakePublisher(topics Topics) *FakePublisher {
	return &FakePublisher{topics: topics}
}

// Publish records a controller event on the events topic.
func (f *FakePublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	f.messages = append(f.messages, Message{Topic: f.topics.Events, Payload: payload})
	return nil
}

// PublishSystem records a lifecycle event on the system topic.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.system = append(f.system, event)
	f.messages = append(f.messages, Message{Topic: f.topics.System, Payload: payload, Retained: event.Retained})
	return nil
}

// Send records c on the indicator topic, making the fake usable as the
// indicator mirror.
func (f *FakePublisher) Send(c indicator.RGB) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connected {
		f.messages = append(f.messages, Message{Topic: f.topics.Indicator, Payload: []byte(c.Hex()), Retained: true})
	}
	return nil
}

// Close marks the fake closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// IsConnected reports the state set by SetConnected.
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// SetConnected changes the reported broker connection state.
func (f *FakePublisher) SetConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

// Fail makes later Publish and PublishSystem calls return err. A nil err
// restores normal behaviour.
func (f *FakePublisher) Fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// Closed reports whether Close was called.
func (f *FakePublisher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Events returns the controller events published so far.
func (f *FakePublisher) Events() []logic.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]logic.Event(nil), f.events...)
}

// SystemEvents returns the lifecycle events published so far.
func (f *FakePublisher) SystemEvents() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.system...)
}

// Messages returns every message published to topic, oldest first.
func (f *FakePublisher) Messages(topic string) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Message
	for _, m := range f.messages {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// Colors returns the "#rrggbb" payloads mirrored to the indicator topic.
func (f *FakePublisher) Colors() []string {
	var out []string
	for _, m := range f.Messages(f.topics.Indicator) {
		out = append(out, string(m.Payload))
	}
	return out
}

// Retained returns what a new subscriber to topic would be handed: the last
// retained message published there.
func (f *FakePublisher) Retained(topic string) (Message, bool) {
	msgs := f.Messages(topic)
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Retained {
			return msgs[i], true
		}
	}
	return Message{}, false
}
