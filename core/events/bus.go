// Package events publishes record lifecycle events in process.
// The record manager emits "<model>.created", "<model>.updated" and
// "<model>.deleted" after every successful write.
package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Lifecycle actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// Event represents a published event.
type Event struct {
	// ID uniquely identifies this emission.
	ID string

	// Name is "<model>.<action>" (e.g., "user.created").
	Name string

	// Model is the model of the affected record.
	Model string

	// Action is the lifecycle action.
	Action string

	// RecordID is the identity of the affected record.
	RecordID any

	// Data is a snapshot of the record data after the write.
	Data map[string]any

	// Time is when the write happened.
	Time time.Time
}

// NewEvent builds a lifecycle event with a fresh ID.
func NewEvent(model, action string, recordID any, data map[string]any, at time.Time) Event {
	return Event{
		ID:       uuid.NewString(),
		Name:     model + "." + action,
		Model:    model,
		Action:   action,
		RecordID: recordID,
		Data:     data,
		Time:     at,
	}
}

// Handler is a function that processes an event.
type Handler func(ctx context.Context, event Event) error

// Bus is a simple publish/subscribe event bus.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   zerolog.Logger
}

// NewBus creates a new event bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event.
// Supports wildcard subscriptions:
//   - "user.created" - exact match
//   - "user.*" - all user events
//   - "*" - all events
func (b *Bus) Subscribe(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Publish emits an event to all matching handlers.
// Handlers are called synchronously in registration order: exact matches,
// then model wildcards, then global wildcards. Handler errors are logged and
// do not stop delivery.
func (b *Bus) Publish(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	matched := b.match(event.Name)

	b.logger.Debug().
		Str("event_id", event.ID).
		Str("event", event.Name).
		Interface("record_id", event.RecordID).
		Int("handlers", len(matched)).
		Msg("event emitted")

	for _, handler := range matched {
		if err := handler(ctx, event); err != nil {
			b.logger.Error().
				Err(err).
				Str("event_id", event.ID).
				Str("event", event.Name).
				Msg("event handler error")
		}
	}
}

// PublishAsync emits an event asynchronously.
// The function returns immediately; handlers run in a goroutine.
func (b *Bus) PublishAsync(ctx context.Context, event Event) {
	go b.Publish(ctx, event)
}

// HasSubscribers checks if any handlers are registered for an event.
func (b *Bus) HasSubscribers(event string) bool {
	return len(b.match(event)) > 0
}

func (b *Bus) match(name string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []Handler
	matched = append(matched, b.handlers[name]...)

	if model, _, ok := strings.Cut(name, "."); ok || name != "" {
		if wildcard := model + ".*"; wildcard != name {
			matched = append(matched, b.handlers[wildcard]...)
		}
	}

	if name != "*" {
		matched = append(matched, b.handlers["*"]...)
	}
	return matched
}
