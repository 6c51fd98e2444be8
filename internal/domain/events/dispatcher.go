package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Wildcard registers a handler for every event type.
const Wildcard = "*"

// EventHandler is a function that handles a domain event
type EventHandler func(ctx context.Context, event DomainEvent) error

// Publisher is what services depend on to emit events.
type Publisher interface {
	Dispatch(ctx context.Context, event DomainEvent) error
}

// Dispatcher dispatches domain events to registered handlers
type Dispatcher struct {
	handlers map[string][]EventHandler
	mu       sync.RWMutex
	log      *logrus.Entry
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(log *logrus.Entry) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[string][]EventHandler),
		log:      log,
	}
}

// Register registers an event handler for a specific event type, or Wildcard
func (d *Dispatcher) Register(eventType string, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// Dispatch runs all handlers for the event concurrently and waits for them.
func (d *Dispatcher) Dispatch(ctx context.Context, event DomainEvent) error {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.handlers[event.EventType()]...)
	handlers = append(handlers, d.handlers[Wildcard]...)
	d.mu.RUnlock()

	if len(handlers) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errChan := make(chan error, len(handlers))

	for _, handler := range handlers {
		wg.Add(1)
		go func(h EventHandler) {
			defer wg.Done()
			if err := h(ctx, event); err != nil {
				d.log.WithFields(logrus.Fields{
					"event_type": event.EventType(),
					"event_id":   event.EventID(),
				}).WithError(err).Warn("event handler failed")
				errChan <- err
			}
		}(handler)
	}

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("dispatching %s: %w", event.EventType(), errors.Join(errs...))
	}

	return nil
}
