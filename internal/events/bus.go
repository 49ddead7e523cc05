package events

import (
	"errors"
	"sync"
)

var (
	// ErrSubscriberExists is returned when Subscribe reuses an id.
	ErrSubscriberExists = errors.New("subscriber id already exists")

	// ErrSubscriberNotFound is returned when Unsubscribe gets an unknown id.
	ErrSubscriberNotFound = errors.New("subscriber id not found")

	// ErrBusClosed is returned for operations on a closed bus.
	ErrBusClosed = errors.New("bus is closed")
)

// Stats is a snapshot of bus counters.
type Stats struct {
	Subscribers    int
	TotalPublished uint64
	TotalSent      uint64
	TotalDropped   uint64
}

// Bus fans events out to subscriber channels. Publish never blocks: if a
// subscriber's channel is full the event is dropped for that subscriber.
// All methods are safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]chan<- Event
	closed bool

	published uint64
	sent      uint64
	dropped   uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]chan<- Event)}
}

// Subscribe registers a channel under the given id.
func (b *Bus) Subscribe(id string, ch chan<- Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	if _, ok := b.subs[id]; ok {
		return ErrSubscriberExists
	}
	b.subs[id] = ch
	return nil
}

// Unsubscribe removes a subscriber by id.
func (b *Bus) Unsubscribe(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	if _, ok := b.subs[id]; !ok {
		return ErrSubscriberNotFound
	}
	delete(b.subs, id)
	return nil
}

// Publish delivers the event to every subscriber whose channel has room.
// Publishing on a closed bus is a no-op.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.published++
	for _, ch := range b.subs {
		select {
		case ch <- e:
			b.sent++
		default:
			b.dropped++
		}
	}
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return Stats{
		Subscribers:    len(b.subs),
		TotalPublished: b.published,
		TotalSent:      b.sent,
		TotalDropped:   b.dropped,
	}
}

// Close stops the bus. Subsequent Subscribe/Unsubscribe return
// ErrBusClosed and Publish becomes a no-op.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	b.closed = true
	b.subs = nil
	return nil
}
