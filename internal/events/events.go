package events

import (
	"sync"
	"time"

	"techslots/internal/model"
)

const (
	BookingCreated       = "booking.created"
	BookingStatusChanged = "booking.status_changed"
)

// Event is an in-process notification about a booking.
type Event struct {
	Type       string
	Booking    model.Booking
	FromStatus model.Status
	ActorID    string
	CreatedAt  time.Time
}

// Handler reacts to an event.
type Handler func(event Event) error

// Bus provides in-process pub/sub for booking events.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
	onError     func(Event, error)
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// OnError registers a callback for handler failures.
func (b *Bus) OnError(fn func(Event, error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = fn
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type. Handlers run synchronously
// in registration order.
func (b *Bus) Publish(event Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	onError := b.onError
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}
