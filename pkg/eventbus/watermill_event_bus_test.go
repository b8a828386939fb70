package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/channels/gochannel"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/eventbus"
	"github.com/paulosouza17/elege-ai-war-room-sub005/pkg/events"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestPublishSubscribe_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)

	received := make(chan *events.ExecutionCompleted, 1)

	err := bus.Handle(events.ExecutionCompletedEvent, func(_ context.Context, event any) error {
		completed, ok := event.(*events.ExecutionCompleted)
		require.True(t, ok)
		received <- completed

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	sent := events.ExecutionCompleted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionCompletedEvent, "flow-1"),
		ExecutionID: "exec-1",
		Result:      map[string]any{"summary": "done"},
		StepsRun:    3,
	}
	require.NoError(t, bus.Publish(ctx, "exec-1", sent))

	select {
	case completed := <-received:
		assert.Equal(t, "exec-1", completed.ExecutionID)
		assert.Equal(t, "flow-1", completed.FlowID)
		assert.Equal(t, "done", completed.Result["summary"])
		assert.Equal(t, 3, completed.StepsRun)
	case <-time.After(3 * time.Second):
		t.Fatal("event never delivered")
	}
}

func TestPublishSubscribe_UnhandledTypeIsAcked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := newTestBus(t)

	received := make(chan *events.ExecutionFailed, 1)

	err := bus.Handle(events.ExecutionFailedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.ExecutionFailed)

		return nil
	})
	require.NoError(t, err)
	require.NoError(t, bus.Subscribe(ctx))

	// No handler for started events; delivery of later events must not stall.
	require.NoError(t, bus.Publish(ctx, "exec-1", events.ExecutionStarted{
		BaseEvent:   events.NewBaseEvent(events.ExecutionStartedEvent, "flow-1"),
		ExecutionID: "exec-1",
	}))
	require.NoError(t, bus.Publish(ctx, "exec-1", events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, "flow-1"),
		ExecutionID: "exec-1",
		Error:       "node exploded",
	}))

	select {
	case failed := <-received:
		assert.Equal(t, "node exploded", failed.Error)
	case <-time.After(3 * time.Second):
		t.Fatal("event never delivered")
	}
}

func TestGenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
