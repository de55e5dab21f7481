package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/devstudio/backoffice/internal/domain/events"
	"github.com/devstudio/backoffice/internal/logging"
)

// EventType is an alias to the domain type
type EventType = events.EventType

// EventHandler handles one delivered domain event.
type EventHandler func(ctx context.Context, payload events.Payload) error

type subscription struct {
	id      int
	handler EventHandler
}

// EventBus manages the publish-subscribe event system fed by the outbox.
type EventBus struct {
	handlers map[EventType][]subscription
	nextID   int
	mu       sync.RWMutex
}

// NewEventBus creates a new EventBus instance
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]subscription),
	}
}

// Subscribe registers a handler for a specific event type
// Returns an unsubscribe function
func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler) func() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.nextID++
	id := eb.nextID
	eb.handlers[eventType] = append(eb.handlers[eventType], subscription{id: id, handler: handler})

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()

		subs := eb.handlers[eventType]
		for i, s := range subs {
			if s.id == id {
				eb.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Publish publishes an event to all registered handlers in order. The first
// handler error stops delivery and is returned.
func (eb *EventBus) Publish(ctx context.Context, eventType EventType, payload events.Payload) error {
	eb.mu.RLock()
	subs := eb.handlers[eventType]
	eb.mu.RUnlock()

	for _, s := range subs {
		if err := s.handler(ctx, payload); err != nil {
			return fmt.Errorf("EventBus handler error for %s: %w", eventType, err)
		}
	}
	return nil
}

// PublishAsync publishes an event asynchronously
func (eb *EventBus) PublishAsync(eventType EventType, payload events.Payload) {
	go func() {
		if err := eb.Publish(context.Background(), eventType, payload); err != nil {
			logging.WithComponent("eventbus").Warnf("⚠️ EventBus async publish error: %v", err)
		}
	}()
}

// HandlerCount returns the number of handlers for an event type.
func (eb *EventBus) HandlerCount(eventType EventType) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.handlers[eventType])
}

// Clear removes all handlers (useful for testing)
func (eb *EventBus) Clear() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers = make(map[EventType][]subscription)
}
