package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/propertyshodh/lead-pipeline/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) (ChangeBus, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisChangeBus(client), mr
}

func testLead(ownerID uint) *models.Lead {
	return &models.Lead{
		ID:              42,
		SourceType:      models.LeadSourceManual,
		Name:            "Asha Kulkarni",
		Phone:           "+919812345678",
		Status:          models.LeadStatusNew,
		Priority:        models.LeadPriorityMedium,
		AssignedAdminID: &ownerID,
	}
}

func waitForEvent(t *testing.T, events <-chan LeadEvent) LeadEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "event channel closed before an event arrived")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for lead event")
		return LeadEvent{}
	}
}

func TestRedisChangeBus_PublishAndSubscribe(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx := context.Background()

	const ownerID uint = 7
	events, cancel, err := bus.Subscribe(ctx, ownerID)
	require.NoError(t, err)
	defer cancel()

	lead := testLead(ownerID)
	require.NoError(t, bus.PublishLeadChanged(ctx, ownerID, LeadEventUpdated, lead))

	ev := waitForEvent(t, events)
	assert.Equal(t, LeadEventUpdated, ev.Type)
	require.NotNil(t, ev.Lead)
	assert.Equal(t, lead.ID, ev.Lead.ID)
	assert.Equal(t, lead.Name, ev.Lead.Name)
	assert.False(t, ev.OccurredAt.IsZero())
}

func TestRedisChangeBus_RemovedEventReachesSameSubscriber(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx := context.Background()

	const ownerID uint = 7
	events, cancel, err := bus.Subscribe(ctx, ownerID)
	require.NoError(t, err)
	defer cancel()

	lead := testLead(ownerID)
	lead.AssignedAdminID = nil
	require.NoError(t, bus.PublishLeadRemoved(ctx, ownerID, lead))

	ev := waitForEvent(t, events)
	assert.Equal(t, LeadEventRemoved, ev.Type)
	require.NotNil(t, ev.Lead)
	assert.Equal(t, lead.ID, ev.Lead.ID)
	assert.Nil(t, ev.Lead.AssignedAdminID)
}

func TestRedisChangeBus_EventsArePerOwner(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx := context.Background()

	eventsA, cancelA, err := bus.Subscribe(ctx, 1)
	require.NoError(t, err)
	defer cancelA()

	eventsB, cancelB, err := bus.Subscribe(ctx, 2)
	require.NoError(t, err)
	defer cancelB()

	require.NoError(t, bus.PublishLeadChanged(ctx, 2, LeadEventCreated, testLead(2)))

	ev := waitForEvent(t, eventsB)
	assert.Equal(t, LeadEventCreated, ev.Type)

	select {
	case stray := <-eventsA:
		t.Fatalf("owner 1 received an event addressed to owner 2: %+v", stray)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRedisChangeBus_RejectsUnknownEventType(t *testing.T) {
	bus, _ := newTestBus(t)
	err := bus.PublishLeadChanged(context.Background(), 1, "lead_vanished", testLead(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported lead event type")
}

func TestRedisChangeBus_CancelStopsDelivery(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx := context.Background()

	const ownerID uint = 3
	events, cancel, err := bus.Subscribe(ctx, ownerID)
	require.NoError(t, err)

	require.NoError(t, bus.PublishLeadChanged(ctx, ownerID, LeadEventCreated, testLead(ownerID)))
	waitForEvent(t, events)

	cancel()

	// After cancel the merged channel drains and closes.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event channel was not closed after cancel")
		}
	}
}

func TestRedisChangeBus_PublishWithoutSubscriberIsLossy(t *testing.T) {
	bus, _ := newTestBus(t)
	ctx := context.Background()

	const ownerID uint = 9
	require.NoError(t, bus.PublishLeadChanged(ctx, ownerID, LeadEventCreated, testLead(ownerID)))

	// Subscribing after the fact must not replay the earlier event.
	events, cancel, err := bus.Subscribe(ctx, ownerID)
	require.NoError(t, err)
	defer cancel()

	select {
	case ev := <-events:
		t.Fatalf("expected no replayed events, got %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}
