package realtime

import (
	"sort"
	"sync"
	"sync/atomic"
)

const defaultBufferSize = 64

// Broker fans changes out to topic subscribers. Delivery never blocks the
// publisher: a subscriber whose buffer is full misses the change and the
// drop is counted.
type Broker struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	buffer int

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewBroker creates a Broker whose subscriptions buffer up to buffer changes.
func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	return &Broker{
		topics: make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscription receives changes for its topics on C until Close.
type Subscription struct {
	C <-chan Change

	ch     chan Change
	broker *Broker
	topics map[string]struct{}
	closed bool
}

// Subscribe registers a new subscription on topics.
func (b *Broker) Subscribe(topics ...string) *Subscription {
	ch := make(chan Change, b.buffer)
	s := &Subscription{C: ch, ch: ch, broker: b, topics: make(map[string]struct{})}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range topics {
		b.addLocked(s, t)
	}
	return s
}

func (b *Broker) addLocked(s *Subscription, topic string) {
	if s.closed {
		return
	}
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		b.topics[topic] = subs
	}
	subs[s] = struct{}{}
	s.topics[topic] = struct{}{}
}

func (b *Broker) removeLocked(s *Subscription, topic string) {
	if subs, ok := b.topics[topic]; ok {
		delete(subs, s)
		if len(subs) == 0 {
			delete(b.topics, topic)
		}
	}
	delete(s.topics, topic)
}

// Publish delivers c to every subscriber of c.Topic.
func (b *Broker) Publish(c Change) {
	b.published.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.topics[c.Topic] {
		select {
		case s.ch <- c:
		default:
			b.dropped.Add(1)
		}
	}
}

// Published is the number of changes published so far.
func (b *Broker) Published() uint64 { return b.published.Load() }

// Dropped is the number of deliveries skipped because a buffer was full.
func (b *Broker) Dropped() uint64 { return b.dropped.Load() }

// Subscribers counts subscriptions on topic.
func (b *Broker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Add subscribes s to one more topic.
func (s *Subscription) Add(topic string) {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	s.broker.addLocked(s, topic)
}

// Remove unsubscribes s from topic.
func (s *Subscription) Remove(topic string) {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	s.broker.removeLocked(s, topic)
}

// Has reports whether s is subscribed to topic.
func (s *Subscription) Has(topic string) bool {
	s.broker.mu.RLock()
	defer s.broker.mu.RUnlock()
	_, ok := s.topics[topic]
	return ok
}

// Topics lists the subscribed topics in sorted order.
func (s *Subscription) Topics() []string {
	s.broker.mu.RLock()
	defer s.broker.mu.RUnlock()
	out := make([]string, 0, len(s.topics))
	for t := range s.topics {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Close removes every topic and closes C. Calling it again is a no-op.
func (s *Subscription) Close() {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	if s.closed {
		return
	}
	for t := range s.topics {
		s.broker.removeLocked(s, t)
	}
	s.closed = true
	close(s.ch)
}
