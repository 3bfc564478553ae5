package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventHandler reacts to one session event.
type EventHandler func(context.Context, Event) error

// Dispatcher fans session events out to subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// sessionBus delivers events synchronously, in subscription order, on the
// publisher's goroutine.
type sessionBus struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	logger    *zap.Logger
	now       func() time.Time
}

// NewInMemoryDispatcher creates an in-process bus.
func NewInMemoryDispatcher(logger *zap.Logger) Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &sessionBus{
		listeners: make(map[EventType][]EventHandler),
		logger:    logger,
		now:       time.Now,
	}
}

// Publish stamps a missing id and timestamp, then runs every handler for the
// event type. Handler failures and panics are logged and joined into the
// returned error; they never stop the remaining handlers.
func (b *sessionBus) Publish(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = b.now().UTC()
	}

	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.listeners[event.Type]...)
	b.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := b.deliver(ctx, handler, event); err != nil {
			b.logger.Warn("event handler failed",
				zap.String("event_type", string(event.Type)),
				zap.String("event_id", event.ID),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *sessionBus) deliver(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic on %s: %v", event.Type, r)
		}
	}()
	return handler(ctx, event)
}

// Subscribe registers a handler for the given event type.
func (b *sessionBus) Subscribe(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventType] = append(b.listeners[eventType], handler)
}
