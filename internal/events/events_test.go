package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"techslots/internal/model"
)

func TestBus_PublishToSubscribers(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.Subscribe(BookingCreated, func(e Event) error {
		got = append(got, "first:"+e.Booking.Key)
		return nil
	})
	bus.Subscribe(BookingCreated, func(e Event) error {
		got = append(got, "second:"+e.Booking.Key)
		return nil
	})
	bus.Subscribe(BookingStatusChanged, func(e Event) error {
		got = append(got, "status")
		return nil
	})

	bus.Publish(Event{Type: BookingCreated, Booking: model.Booking{Key: "k1"}})
	assert.Equal(t, []string{"first:k1", "second:k1"}, got)
}

func TestBus_HandlerErrorsReported(t *testing.T) {
	bus := NewBus()
	boom := errors.New("boom")
	var reported error
	bus.OnError(func(_ Event, err error) { reported = err })

	called := false
	bus.Subscribe(BookingCreated, func(Event) error { return boom })
	bus.Subscribe(BookingCreated, func(e Event) error {
		called = true
		assert.False(t, e.CreatedAt.IsZero())
		return nil
	})

	bus.Publish(Event{Type: BookingCreated})
	assert.ErrorIs(t, reported, boom)
	assert.True(t, called)
}

func TestBus_NilIsNoop(t *testing.T) {
	var bus *Bus
	assert.NotPanics(t, func() { bus.Publish(Event{Type: BookingCreated}) })
}
