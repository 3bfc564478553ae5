package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salescrm/crm-portal/internal/events"
)

func TestAuditKeepsNewestFirstWithinCapacity(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	audit := NewAuditService(dispatcher, nil, 2)
	audit.RegisterHandlers()

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{ID: "1", Type: events.EventLoggedIn}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{ID: "2", Type: events.EventTokenRefreshed}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{ID: "3", Type: events.EventLoggedOut}))

	recent := audit.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "3", recent[0].ID)
	assert.Equal(t, "2", recent[1].ID)
}

func TestAuditRecordsSessionFlow(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(nil)
	audit := NewAuditService(dispatcher, nil, 0)
	audit.RegisterHandlers()

	h := newHarness(t, &fakeCRM{refreshFails: true})
	h.svc.dispatcher = dispatcher

	require.NoError(t, h.svc.Login(context.Background(), "agent@example.com", "secret", false))
	h.crm.mu.Lock()
	h.crm.access = "rotated-elsewhere"
	h.crm.mu.Unlock()
	_, err := h.leads.List(context.Background(), nil)
	require.Error(t, err)

	recent := audit.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, events.EventSessionExpired, recent[0].Type)
	assert.Equal(t, events.EventLoggedIn, recent[1].Type)
	assert.Equal(t, "u1", recent[1].UserID)
}
