package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesSubscribersInOrder(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var seen []string

	d.Subscribe(EventLoggedIn, func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+e.UserID)
		return errors.New("audit sink unavailable")
	})
	d.Subscribe(EventLoggedIn, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+e.UserID)
		return nil
	})
	d.Subscribe(EventLoggedOut, func(context.Context, Event) error {
		seen = append(seen, "logout")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventLoggedIn, UserID: "u1"})
	assert.EqualError(t, err, "audit sink unavailable")
	assert.Equal(t, []string{"first:u1", "second:u1"}, seen)
}

func TestPublishWithoutSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventSessionExpired}))
}

func TestPublishStampsMissingIdentity(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var got []Event
	d.Subscribe(EventTokenRefreshed, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTokenRefreshed}))
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTokenRefreshed, ID: "evt-1", Timestamp: fixed}))

	require.Len(t, got, 2)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())
	assert.Equal(t, "evt-1", got[1].ID)
	assert.Equal(t, fixed, got[1].Timestamp)
}

func TestPanickingHandlerDoesNotStopDelivery(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	delivered := false
	d.Subscribe(EventSessionExpired, func(context.Context, Event) error {
		panic("boom")
	})
	d.Subscribe(EventSessionExpired, func(context.Context, Event) error {
		delivered = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventSessionExpired})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.True(t, delivered)
}
