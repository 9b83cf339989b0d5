package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_DeliversToSubscribedTopic(t *testing.T) {
	bus := NewBus()

	var got []Event
	bus.Subscribe(TopicReservationCreated, func(event Event) error {
		got = append(got, event)
		return nil
	})
	bus.Subscribe(TopicSettingsUpdated, func(event Event) error {
		t.Fatal("handler for another topic must not fire")
		return nil
	})

	bus.Publish(Event{Topic: TopicReservationCreated, Payload: map[string]interface{}{"reference": "abc"}})

	assert.Len(t, got, 1)
	assert.Equal(t, TopicReservationCreated, got[0].Topic)
	assert.Equal(t, "abc", got[0].Payload["reference"])
	assert.False(t, got[0].OccurredAt.IsZero())
}

func TestBus_MultipleHandlersInOrder(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.Subscribe(TopicClosedDatesChanged, func(Event) error {
		order = append(order, "first")
		return nil
	})
	bus.Subscribe(TopicClosedDatesChanged, func(Event) error {
		order = append(order, "second")
		return nil
	})

	bus.Publish(Event{Topic: TopicClosedDatesChanged})

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestBus_NoSubscribers(t *testing.T) {
	bus := NewBus()

	assert.NotPanics(t, func() {
		bus.Publish(Event{Topic: TopicEquipmentSynced})
	})
}
