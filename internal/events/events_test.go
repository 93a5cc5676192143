package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()

	var got []Event
	bus.Subscribe(TypeBookingCreated, func(e Event) error {
		got = append(got, e)
		return nil
	})

	require.NoError(t, bus.PublishJSON(TypeBookingCreated, map[string]string{"bookingId": "abc"}))
	bus.Publish(Event{Type: TypeFlowCompleted}) // no subscriber, no effect

	require.Len(t, got, 1)
	assert.JSONEq(t, `{"bookingId":"abc"}`, string(got[0].Payload))
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewBus()

	calls := 0
	bus.Subscribe(TypeSessionCancelled, func(Event) error { calls++; return nil })
	bus.Subscribe(TypeSessionCancelled, func(Event) error { calls++; return nil })

	bus.Publish(Event{Type: TypeSessionCancelled})
	assert.Equal(t, 2, calls)
}
