package internal

import (
	"sync"
	"sync/atomic"
)

// Seed selects which existing value a new subscription starts with.
type Seed int

const (
	SeedLatest Seed = iota
	SeedFirst
	SeedNone
)

// Subscription is one subscriber mailbox. It holds at most one pending value.
type Subscription[T any] struct {
	ch     chan T
	closed atomic.Bool
}

// C returns the receive side of the mailbox. It is closed when the broadcast closes
// or, after Close, on the next publish.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Close detaches the subscription from its broadcast.
func (s *Subscription[T]) Close() {
	s.closed.Store(true)
}

// Broadcast holds the latest published value and pushes every new value to its subscribers.
// Slow subscribers only ever see the most recent value: a full mailbox gets its pending value replaced.
type Broadcast[T any] struct {
	mu sync.Mutex

	name    string
	metrics *Metrics

	first     T
	latest    T
	hasFirst  bool
	hasLatest bool

	subs   []*Subscription[T]
	closed bool
}

func NewBroadcast[T any](name string, metrics *Metrics) *Broadcast[T] {
	return &Broadcast[T]{name: name, metrics: metrics}
}

func (b *Broadcast[T]) First() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.first, b.hasFirst
}

func (b *Broadcast[T]) Latest() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest, b.hasLatest
}

func (b *Broadcast[T]) Subscribe(seed Seed) (*Subscription[T], error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBroadcastClosed
	}

	sub := &Subscription[T]{ch: make(chan T, 1)}
	switch {
	case seed == SeedLatest && b.hasLatest:
		sub.ch <- b.latest
	case seed == SeedFirst && b.hasFirst:
		sub.ch <- b.first
	}

	b.subs = append(b.subs, sub)
	return sub, nil
}

func (b *Broadcast[T]) Publish(v T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBroadcastClosed
	}

	if !b.hasFirst {
		b.first, b.hasFirst = v, true
	}
	b.latest, b.hasLatest = v, true

	live := b.subs[:0]
	for _, sub := range b.subs {
		if sub.closed.Load() {
			close(sub.ch)
			continue
		}
		if offer(sub.ch, v) {
			b.metrics.evicted(b.name)
		}
		live = append(live, sub)
	}
	clear(b.subs[len(live):])
	b.subs = live

	b.metrics.published(b.name)
	return nil
}

// Close closes every subscriber channel. Further Publish and Subscribe calls fail.
func (b *Broadcast[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for _, sub := range b.subs {
		close(sub.ch)
	}
	b.subs = nil
}

func (b *Broadcast[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// offer puts v in the mailbox, evicting the pending value if there is one.
// Only the broadcast sends on ch (under its lock), so the loop ends after at most one eviction
// unless the receiver drains the mailbox concurrently, in which case the next send succeeds.
func offer[T any](ch chan T, v T) (evicted bool) {
	for {
		select {
		case ch <- v:
			return evicted
		default:
		}

		select {
		case <-ch:
			evicted = true
		default:
		}
	}
}
