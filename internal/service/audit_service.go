package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/salescrm/crm-portal/internal/events"
)

const defaultAuditCapacity = 100

// AuditService records session lifecycle events: every event is logged and
// the most recent ones are kept for the portal's audit view.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	capacity   int

	mu     sync.RWMutex
	recent []events.Event
}

// NewAuditService creates the service. capacity bounds the kept history.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, capacity int) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if capacity <= 0 {
		capacity = defaultAuditCapacity
	}
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		capacity:   capacity,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoggedIn, a.handleSessionStarted)
	a.dispatcher.Subscribe(events.EventRegistered, a.handleSessionStarted)
	a.dispatcher.Subscribe(events.EventLoggedOut, a.handleLoggedOut)
	a.dispatcher.Subscribe(events.EventTokenRefreshed, a.handleTokenRefreshed)
	a.dispatcher.Subscribe(events.EventSessionExpired, a.handleSessionExpired)
	a.dispatcher.Subscribe(events.EventProfileUpdated, a.handleProfileUpdated)
}

// Recent returns kept events, newest first.
func (a *AuditService) Recent() []events.Event {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]events.Event, len(a.recent))
	for i, e := range a.recent {
		out[len(a.recent)-1-i] = e
	}
	return out
}

func (a *AuditService) handleSessionStarted(_ context.Context, event events.Event) error {
	a.logger.Info("SessionStarted", fields(event)...)
	a.keep(event)
	return nil
}

func (a *AuditService) handleLoggedOut(_ context.Context, event events.Event) error {
	a.logger.Info("LoggedOut", append(fields(event), zap.Any("payload", event.Payload))...)
	a.keep(event)
	return nil
}

func (a *AuditService) handleTokenRefreshed(_ context.Context, event events.Event) error {
	a.logger.Debug("TokenRefreshed", fields(event)...)
	a.keep(event)
	return nil
}

func (a *AuditService) handleSessionExpired(_ context.Context, event events.Event) error {
	a.logger.Warn("SessionExpired", append(fields(event), zap.Any("payload", event.Payload))...)
	a.keep(event)
	return nil
}

func (a *AuditService) handleProfileUpdated(_ context.Context, event events.Event) error {
	a.logger.Debug("ProfileUpdated", fields(event)...)
	a.keep(event)
	return nil
}

func (a *AuditService) keep(event events.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recent = append(a.recent, event)
	if over := len(a.recent) - a.capacity; over > 0 {
		a.recent = append([]events.Event(nil), a.recent[over:]...)
	}
}

func fields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("user_id", event.UserID),
		zap.String("role", string(event.Role)),
		zap.Time("at", event.Timestamp),
	}
}
