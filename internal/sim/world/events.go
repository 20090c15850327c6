package world

import (
	"sync"
	"time"
)

type EventKind string

const (
	EventSpawned  EventKind = "SPAWNED"
	EventEngaged  EventKind = "ENGAGED"
	EventHP       EventKind = "HP"
	EventDead     EventKind = "DEAD"
	EventRemoved  EventKind = "REMOVED"
	EventCounters EventKind = "COUNTERS"
)

// ResourceEvent is the change notification consumed by health bars, ring visuals and
// the observer stream.
type ResourceEvent struct {
	Kind     EventKind     `json:"kind"`
	World    string        `json:"world"`
	At       time.Time     `json:"at"`
	Resource *ResourceView `json:"resource,omitempty"`
	Counters *Counters     `json:"counters,omitempty"`
	Payouts  []Payout      `json:"payouts,omitempty"`
}

// Bus fans events out to subscribers. Publishing never blocks: a full subscriber
// loses its oldest queued event.
type Bus struct {
	mu   sync.RWMutex
	subs map[uint64]chan ResourceEvent
	next uint64
}

func NewBus() *Bus {
	return &Bus{subs: map[uint64]chan ResourceEvent{}}
}

func (b *Bus) Subscribe(buf int) (<-chan ResourceEvent, func()) {
	if buf <= 0 {
		buf = 64
	}
	ch := make(chan ResourceEvent, buf)
	b.mu.Lock()
	b.next++
	id := b.next
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

func (b *Bus) Publish(ev ResourceEvent) {
	if b == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		sendLatest(ch, ev)
	}
}

func (b *Bus) Subscribers() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func sendLatest(ch chan ResourceEvent, ev ResourceEvent) {
	select {
	case ch <- ev:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- ev:
	default:
	}
}
