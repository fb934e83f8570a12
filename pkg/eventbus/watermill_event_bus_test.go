package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orchid-run/orchid/pkg/channels/gochannel"
	"github.com/orchid-run/orchid/pkg/events"
	"github.com/orchid-run/orchid/pkg/models"
)

func newTestBus(t *testing.T) *WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestPublishAndSubscribe(t *testing.T) {
	bus := newTestBus(t)

	received := make(chan *events.ExecutionRequested, 1)

	require.NoError(t, bus.Handle(events.ExecutionRequestedEvent, func(_ context.Context, event any) error {
		requested, ok := event.(*events.ExecutionRequested)
		require.True(t, ok)
		received <- requested

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	require.NoError(t, bus.Publish(ctx, "wf-1", events.ExecutionRequested{
		BaseEvent: events.BaseEvent{
			ID:          bus.GenerateID(),
			Type:        events.ExecutionRequestedEvent,
			Timestamp:   time.Now().UTC(),
			WorkflowID:  "wf-1",
			ExecutionID: "exec-1",
		},
		TriggeredBy: models.TriggeredByWebhook,
	}))

	select {
	case requested := <-received:
		assert.Equal(t, "exec-1", requested.ExecutionID)
		assert.Equal(t, "wf-1", requested.WorkflowID)
		assert.Equal(t, models.TriggeredByWebhook, requested.TriggeredBy)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestUnhandledEventTypeIsDropped(t *testing.T) {
	bus := newTestBus(t)

	handled := make(chan struct{}, 1)

	require.NoError(t, bus.Handle(events.ExecutionCompletedEvent, func(context.Context, any) error {
		handled <- struct{}{}

		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, bus.Subscribe(ctx))

	// no handler registered for failed events
	require.NoError(t, bus.Publish(ctx, "wf-1", events.ExecutionFailed{
		BaseEvent: events.BaseEvent{ID: bus.GenerateID(), ExecutionID: "exec-1"},
		Error:     "boom",
	}))

	select {
	case <-handled:
		t.Fatal("handler for a different event type fired")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestGenerateIDUnique(t *testing.T) {
	bus := newTestBus(t)

	a, b := bus.GenerateID(), bus.GenerateID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
