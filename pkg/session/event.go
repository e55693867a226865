package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/germanamz/mixbridge/pkg/mixer"
)

// EventKind identifies the type of session event.
type EventKind string

const (
	EventStateChanged  EventKind = "state_changed"
	EventStatus        EventKind = "status"
	EventSynced        EventKind = "synced"
	EventCommandFailed EventKind = "command_failed"
)

// Event is a notification of session activity. Only the fields of its kind
// are set: Status for EventStatus, Controls for EventSynced, Command and Err
// for EventCommandFailed.
type Event struct {
	Kind     EventKind
	State    State
	Time     time.Time
	Status   string
	Controls int
	Command  mixer.Command
	Err      error
}

// Subscription is one observer of an EventBus.
type Subscription struct {
	C <-chan Event

	ch      chan Event
	dropped atomic.Int64
}

// Dropped returns how many events missed this subscription because its
// buffer was full.
func (s *Subscription) Dropped() int64 { return s.dropped.Load() }

// EventBus delivers session events to subscribers without ever blocking the
// publisher. The zero value is ready to use.
type EventBus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewEventBus creates an empty EventBus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers an observer whose channel buffers up to size events.
// Call Unsubscribe to release it.
func (b *EventBus) Subscribe(size int) *Subscription {
	ch := make(chan Event, size)
	sub := &Subscription{C: ch, ch: ch}

	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[*Subscription]struct{})
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	return sub
}

// Unsubscribe removes sub and closes its channel. Repeated calls are no-ops.
func (b *EventBus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.ch)
}

// Publish stamps e and offers it to every subscriber. A full subscriber
// misses the event and its Dropped count grows.
func (b *EventBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
			sub.dropped.Add(1)
		}
	}
}
