package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBusDeliversInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var got []string
	bus.Subscribe(EventRescale, func(ev Event) { got = append(got, "first") })
	bus.Subscribe(EventRescale, func(ev Event) { got = append(got, "second") })
	bus.Subscribe(EventZoomIn, func(ev Event) { got = append(got, "other") })

	bus.Publish(Event{Kind: EventRescale, Scale: 1})
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	calls := 0
	cancel := bus.Subscribe(EventFade, func(Event) { calls++ })
	bus.Subscribe(EventFade, func(Event) {})

	bus.Fire(EventFade)
	cancel()
	bus.Fire(EventFade)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, bus.SubscriberCount(EventFade))
}

func TestBusHandlerMaySubscribe(t *testing.T) {
	bus := NewBus()
	late := 0
	bus.Subscribe(EventShow, func(Event) {
		bus.Subscribe(EventShow, func(Event) { late++ })
	})

	bus.Fire(EventShow)
	assert.Equal(t, 0, late, "a handler added during publish waits for the next one")
	bus.Fire(EventShow)
	assert.Equal(t, 1, late)
}

func TestBusRejectsUnknownKind(t *testing.T) {
	bus := NewBus()
	assert.Panics(t, func() { bus.Subscribe(eventKindCount, func(Event) {}) })
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "panToPoint", EventPanToPoint.String())
	assert.Equal(t, "fadeHelpIndicator", EventFadeHelpIndicator.String())
	assert.Equal(t, "EventKind(99)", EventKind(99).String())
}
