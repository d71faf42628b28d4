package mqtt

import "log"

// queuedMsg is a serialized message held for replay after reconnect.
type queuedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog holds messages published while the broker is unreachable.
// Fixed capacity; once full the oldest message is dropped, since a
// stale limiter transition is worth less than a fresh one. Not safe
// for concurrent use, the caller synchronizes.
type backlog struct {
	msgs    []queuedMsg
	tail    int // index of the oldest message
	size    int
	dropped int
}

func newBacklog(capacity int) *backlog {
	return &backlog{msgs: make([]queuedMsg, capacity)}
}

func (b *backlog) add(m queuedMsg) {
	if b.size == len(b.msgs) {
		if b.dropped == 0 {
			log.Printf("mqtt: backlog full (%d messages), dropping oldest", len(b.msgs))
		}
		b.msgs[b.tail] = m
		b.tail = (b.tail + 1) % len(b.msgs)
		b.dropped++
		return
	}
	b.msgs[(b.tail+b.size)%len(b.msgs)] = m
	b.size++
}

// takeAll returns the queued messages oldest first and resets the
// backlog for reuse.
func (b *backlog) takeAll() []queuedMsg {
	if b.size == 0 {
		return nil
	}
	out := make([]queuedMsg, b.size)
	for i := range out {
		out[i] = b.msgs[(b.tail+i)%len(b.msgs)]
	}
	b.tail = 0
	b.size = 0
	b.dropped = 0
	return out
}

func (b *backlog) len() int {
	return b.size
}
