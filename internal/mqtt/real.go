package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/sweeney/relay-timer/internal/log"
	"github.com/sweeney/relay-timer/internal/logic"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	retryInterval  = 5 * time.Second
	drainTimeout   = 2 * time.Second
	backlogSize    = 64
	outboxSize     = 32
)

// ErrQueueFull is returned when the broker connection has stalled and the
// outgoing queue cannot take another message.
var ErrQueueFull = errors.New("publish queue full")

// client is the subset of paho.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	IsConnectionOpen() bool
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker. Callers only ever hand
// messages to a bounded queue; a single worker goroutine talks to paho, so a
// stalled broker never blocks the control loop. Messages that cannot be
// delivered are held and sent, in order, before anything newer.
type RealPublisher struct {
	client client
	topics Topics
	logger zerolog.Logger

	outbox    chan message
	connected chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	dropping  atomic.Bool

	// owned by the worker
	held *backlog
}

// NewRealPublisher creates a publisher for the given broker. The broker will
// publish an OFFLINE system event if the connection drops without a clean
// Close. A broker that does not answer within the connect timeout is not an
// error: the client keeps retrying and messages are held meanwhile.
func NewRealPublisher(broker, clientID string, topics Topics) (*RealPublisher, error) {
	will, err := FormatSystemPayload(SystemEvent{Event: "OFFLINE"})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	logger := log.WithComponent("mqtt")
	var p *RealPublisher

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetBinaryWill(topics.System, will, 1, true).
		SetOnConnectHandler(func(paho.Client) { p.onConnect() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warn().Err(err).Msg("connection lost")
		})

	c := paho.NewClient(opts)
	p = newPublisher(c, topics, logger)

	token := c.Connect()
	if !token.WaitTimeout(connectTimeout) {
		logger.Warn().Str("broker", broker).Msg("broker not reachable yet, retrying in background")
		return p, nil
	}
	if err := token.Error(); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

func newPublisher(c client, topics Topics, logger zerolog.Logger) *RealPublisher {
	p := &RealPublisher{
		client:    c,
		topics:    topics,
		logger:    logger,
		outbox:    make(chan message, outboxSize),
		connected: make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		held:      newBacklog(backlogSize, logger),
	}
	go p.run()
	return p
}

// Publish queues a controller event for the events topic (QoS 0, not
// retained).
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.enqueue(message{topic: p.topics.Events, payload: payload})
}

// PublishSystem queues a lifecycle event for the system topic. QoS 1 so
// transitions are not silently lost.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.enqueue(message{
		topic:    p.topics.System,
		payload:  payload,
		qos:      1,
		retained: event.Retained,
	})
}

// IsConnected reports whether the broker connection is open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close delivers what is already queued, waiting at most drainTimeout, then
// disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.closeOnce.Do(func() {
		close(p.stop)
		select {
		case <-p.done:
		case <-time.After(drainTimeout):
			p.logger.Warn().Msg("publish queue not drained before disconnect")
		}
		p.client.Disconnect(1000)
	})
	return nil
}

// Indicator returns a driver mirroring the status indicator onto the
// indicator topic over this publisher's connection.
func (p *RealPublisher) Indicator() *IndicatorDriver {
	return &IndicatorDriver{pub: p, topic: p.topics.Indicator}
}

// enqueue hands m to the worker without blocking.
func (p *RealPublisher) enqueue(m message) error {
	select {
	case p.outbox <- m:
		p.dropping.Store(false)
		return nil
	default:
	}
	if !p.dropping.Swap(true) {
		p.logger.Warn().Str("topic", m.topic).Msg("broker stalled, dropping new messages")
	}
	return fmt.Errorf("publish to %s: %w", m.topic, ErrQueueFull)
}

func (p *RealPublisher) onConnect() {
	p.logger.Info().Msg("connected")
	select {
	case p.connected <- struct{}{}:
	default:
	}
}

func (p *RealPublisher) run() {
	defer close(p.done)

	retry := time.NewTicker(retryInterval)
	defer retry.Stop()

	for {
		select {
		case m := <-p.outbox:
			p.deliver(m)
		case <-p.connected:
			p.flush()
		case <-retry.C:
			p.flush()
		case <-p.stop:
			for {
				select {
				case m := <-p.outbox:
					p.deliver(m)
				default:
					return
				}
			}
		}
	}
}

// deliver sends m once everything held before it has gone out.
func (p *RealPublisher) deliver(m message) {
	if !p.client.IsConnectionOpen() || !p.flush() {
		p.hold(m)
		return
	}
	if err := p.publish(m); err != nil {
		p.logger.Warn().Err(err).Msg("publish failed, holding for retry")
		p.hold(m)
	}
}

func (p *RealPublisher) hold(m message) {
	if m.transient {
		return
	}
	p.held.push(m)
}

// flush sends held messages oldest first and reports whether none remain.
func (p *RealPublisher) flush() bool {
	if p.held.len() == 0 {
		return true
	}
	if !p.client.IsConnectionOpen() {
		return false
	}

	sent := 0
	for {
		m, ok := p.held.front()
		if !ok {
			break
		}
		if err := p.publish(m); err != nil {
			p.logger.Warn().Err(err).Int("held", p.held.len()).Msg("replay stalled")
			return false
		}
		p.held.pop()
		sent++
	}
	p.logger.Info().Int("replayed", sent).Msg("held messages delivered")
	return true
}

func (p *RealPublisher) publish(m message) error {
	token := p.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", m.topic, err)
	}
	return nil
}
