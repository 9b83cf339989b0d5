// Package events provides the in-process pub/sub bus that links the
// persistence layer to cache invalidation and mirroring subscribers.
package events

import (
	"sync"
	"time"
)

// Topics published by the reservation and admin services.
const (
	TopicReservationCreated = "reservation.created"
	TopicReservationUpdated = "reservation.updated"
	TopicSettingsUpdated    = "settings.updated"
	TopicClosedDatesChanged = "closed_dates.changed"
	TopicEquipmentSynced    = "equipment.synced"
)

// Event is a lightweight notification that some piece of state
// changed. Payload carries topic-specific data such as a reservation
// reference or an equipment id.
type Event struct {
	Topic      string
	Payload    map[string]interface{}
	OccurredAt time.Time
}

// Handler reacts to an event.
type Handler func(event Event) error

// Bus is an in-process pub/sub dispatcher.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given topic.
func (b *Bus) Subscribe(topic string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], handler)
}

// Publish notifies subscribers of the event's topic.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Topic]...)
	b.mu.RUnlock()

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}
