package mqtt

import "github.com/rs/zerolog"

// message is one publish waiting for the broker.
type message struct {
	topic     string
	payload   []byte
	qos       byte
	retained  bool
	// transient messages are only worth sending while connected; they are
	// never held for replay.
	transient bool
}

// backlog holds undelivered messages oldest first. When full it evicts the
// oldest event before any retained lifecycle message, so a broker that comes
// back still receives STARTUP and SHUTDOWN. Not safe for concurrent use.
type backlog struct {
	msgs     []message
	capacity int
	evicting bool // eviction already reported since the backlog last emptied
	logger   zerolog.Logger
}

func newBacklog(capacity int, logger zerolog.Logger) *backlog {
	return &backlog{
		msgs:     make([]message, 0, capacity),
		capacity: capacity,
		logger:   logger,
	}
}

func (b *backlog) push(m message) {
	if len(b.msgs) < b.capacity {
		b.msgs = append(b.msgs, m)
		return
	}

	victim := b.oldestEvent()
	if victim < 0 && !m.retained {
		// everything held is a lifecycle message; the new event loses
		b.report(m)
		return
	}
	if victim < 0 {
		victim = 0
	}
	b.report(b.msgs[victim])
	b.remove(victim)
	b.msgs = append(b.msgs, m)
}

// front returns the oldest held message.
func (b *backlog) front() (message, bool) {
	if len(b.msgs) == 0 {
		return message{}, false
	}
	return b.msgs[0], true
}

// pop discards the oldest held message.
func (b *backlog) pop() {
	if len(b.msgs) == 0 {
		return
	}
	b.remove(0)
	if len(b.msgs) == 0 {
		b.evicting = false
	}
}

func (b *backlog) len() int {
	return len(b.msgs)
}

func (b *backlog) oldestEvent() int {
	for i, m := range b.msgs {
		if !m.retained {
			return i
		}
	}
	return -1
}

func (b *backlog) remove(i int) {
	copy(b.msgs[i:], b.msgs[i+1:])
	b.msgs = b.msgs[:len(b.msgs)-1]
}

func (b *backlog) report(dropped message) {
	if b.evicting {
		return
	}
	b.evicting = true
	b.logger.Warn().
		Int("capacity", b.capacity).
		Str("topic", dropped.topic).
		Msg("offline backlog full, dropping oldest event")
}
