// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package broadcast fans poll events out to subscribers grouped by topic.
package broadcast

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// GlobalTopic carries events every connected client receives.
const GlobalTopic = "global"

// Event names
const (
	EventPollCreated        = "poll-created"
	EventPollUpdated        = "poll-updated"
	EventPollStarted        = "poll-started"
	EventPollClosed         = "poll-closed"
	EventWaitingRoomUpdated = "waiting-room-updated"
	EventPollStats          = "poll-stats"
	EventPollData           = "poll-data"
)

// DefaultBuffer is the per-subscription queue size used when none is given.
const DefaultBuffer = 64

// PollTopic returns the topic for events about a single poll.
func PollTopic(pollID string) string {
	return "poll:" + pollID
}

// Event is one published message.
type Event struct {
	Topic   string
	Name    string
	Payload any
}

// Subscription is a single observer. Its channel is closed when the
// subscription is removed or evicted for falling behind.
type Subscription struct {
	id uint64
	ch chan Event

	mu      sync.Mutex
	closed  bool
	evicted bool
}

// Events returns the subscription's delivery channel.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Evicted reports whether the subscription was dropped because its buffer
// filled up.
func (s *Subscription) Evicted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evicted
}

// deliver enqueues ev without blocking. It returns false when the buffer is
// full, in which case the subscription has been closed.
func (s *Subscription) deliver(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- ev:
		return true
	default:
		s.closed = true
		s.evicted = true
		close(s.ch)
		return false
	}
}

func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Broadcaster is a topic-keyed subscriber registry.
type Broadcaster struct {
	mu     sync.RWMutex
	topics map[string]map[*Subscription]struct{}
	member map[*Subscription]map[string]struct{}
	buffer int
	nextID atomic.Uint64
}

// New creates a broadcaster whose subscriptions buffer up to buffer events.
func New(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broadcaster{
		topics: make(map[string]map[*Subscription]struct{}),
		member: make(map[*Subscription]map[string]struct{}),
		buffer: buffer,
	}
}

// NewSubscription creates an observer that is not yet attached to any topic.
func (b *Broadcaster) NewSubscription() *Subscription {
	sub := &Subscription{
		id: b.nextID.Add(1),
		ch: make(chan Event, b.buffer),
	}
	b.mu.Lock()
	b.member[sub] = make(map[string]struct{})
	b.mu.Unlock()
	return sub
}

// Subscribe attaches sub to topic. Subscribing twice is a no-op, as is
// subscribing a removed subscription.
func (b *Broadcaster) Subscribe(sub *Subscription, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	topics, ok := b.member[sub]
	if !ok {
		return
	}
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[*Subscription]struct{})
		b.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	topics[topic] = struct{}{}
}

// Unsubscribe detaches sub from topic.
func (b *Broadcaster) Unsubscribe(sub *Subscription, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detach(sub, topic)
}

// detach must be called with b.mu held.
func (b *Broadcaster) detach(sub *Subscription, topic string) {
	if subs, ok := b.topics[topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.topics, topic)
		}
	}
	if topics, ok := b.member[sub]; ok {
		delete(topics, topic)
	}
}

// Remove detaches sub from every topic and closes its channel.
func (b *Broadcaster) Remove(sub *Subscription) {
	b.mu.Lock()
	for topic := range b.member[sub] {
		b.detach(sub, topic)
	}
	delete(b.member, sub)
	b.mu.Unlock()

	sub.close()
}

// Publish sends an event to every current subscriber of topic. Delivery
// never blocks: a subscriber with a full buffer is evicted.
//
// Callers that need ordering for a topic must serialize their Publish calls.
func (b *Broadcaster) Publish(topic, name string, payload any) {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.topics[topic]))
	for sub := range b.topics[topic] {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	ev := Event{Topic: topic, Name: name, Payload: payload}
	for _, sub := range subs {
		if !sub.deliver(ev) {
			slog.Warn("evicting slow subscriber", "subscription", sub.id, "topic", topic, "event", name)
			b.Remove(sub)
		}
	}
}

// Send delivers an event to a single subscription, bypassing topics. It
// shares the subscription's queue, so it is ordered with published events.
func (b *Broadcaster) Send(sub *Subscription, topic, name string, payload any) {
	ev := Event{Topic: topic, Name: name, Payload: payload}
	if !sub.deliver(ev) {
		slog.Warn("evicting slow subscriber", "subscription", sub.id, "topic", topic, "event", name)
		b.Remove(sub)
	}
}

// Subscribers returns how many subscriptions are attached to topic.
func (b *Broadcaster) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}
