// Package events distributes domain events (captures, spins, reconnects) to
// observers such as the log and the metrics collector.
package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Event is a domain event.
type Event struct {
	// Type is the event type, e.g. "catch:captured".
	Type string

	// Data is the typed payload, one of the structs in messages.go.
	Data any

	Context context.Context
}

// Observer is notified of dispatched events.
type Observer interface {
	// OnEvent handles one event. A returned error is logged and dispatch
	// continues with the next observer.
	OnEvent(event Event) error

	// GetName returns a human-readable name for logging.
	GetName() string

	// ShouldHandle filters the event types this observer receives.
	ShouldHandle(eventType string) bool
}

// EventDispatcher fans events out to registered observers. Safe for
// concurrent use.
type EventDispatcher struct {
	observers []Observer
	mu        sync.RWMutex
	logger    *zap.Logger
}

// NewEventDispatcher creates an empty dispatcher.
func NewEventDispatcher(logger *zap.Logger) *EventDispatcher {
	return &EventDispatcher{
		observers: make([]Observer, 0),
		logger:    logger.Named("events"),
	}
}

// Register adds an observer.
func (d *EventDispatcher) Register(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.observers = append(d.observers, observer)
	d.logger.Debug("registered observer", zap.String("observer", observer.GetName()))
}

// Unregister removes an observer.
func (d *EventDispatcher) Unregister(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, obs := range d.observers {
		if obs == observer {
			d.observers[i] = d.observers[len(d.observers)-1]
			d.observers = d.observers[:len(d.observers)-1]
			d.logger.Debug("unregistered observer", zap.String("observer", observer.GetName()))
			return
		}
	}
}

// Dispatch notifies observers sequentially, in registration order.
func (d *EventDispatcher) Dispatch(event Event) {
	if d == nil {
		return
	}

	d.mu.RLock()
	observers := make([]Observer, len(d.observers))
	copy(observers, d.observers)
	d.mu.RUnlock()

	for _, observer := range observers {
		if !observer.ShouldHandle(event.Type) {
			continue
		}
		if err := observer.OnEvent(event); err != nil {
			d.logger.Warn("observer failed",
				zap.String("observer", observer.GetName()),
				zap.String("event", event.Type),
				zap.Error(err),
			)
		}
	}
}

// ObserverCount returns the number of registered observers.
func (d *EventDispatcher) ObserverCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.observers)
}

// New builds an event with a typed payload.
func New[T any](ctx context.Context, eventType string, data T) Event {
	return Event{
		Type:    eventType,
		Data:    data,
		Context: ctx,
	}
}

// Payload extracts a typed payload. It returns false when the payload has a
// different type.
func Payload[T any](event Event) (T, bool) {
	typed, ok := event.Data.(T)
	return typed, ok
}
