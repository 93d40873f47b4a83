package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"requested":  StatusRequested,
		"Confirmed":  StatusConfirmed,
		"solicitada": StatusRequested,
		"confirmada": StatusConfirmed,
		"cancelada":  StatusCancelled,
		"completada": StatusCompleted,
		" canceled ": StatusCancelled,
	}
	for in, want := range cases {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseStatus("archived")
	assert.Error(t, err)
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, StatusRequested.IsTerminal())
	assert.False(t, StatusConfirmed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
}

func TestBooking_StartsAt(t *testing.T) {
	loc := time.FixedZone("ART", -3*3600)
	b := Booking{Key: "t1_20251023_08", Date: "2025-10-23", Start: "08:00"}

	got, err := b.StartsAt(loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 10, 23, 8, 0, 0, 0, loc), got)

	bad := Booking{Date: "23/10/2025", Start: "08:00"}
	_, err = bad.StartsAt(loc)
	assert.Error(t, err)
}

func TestBooking_Occupies(t *testing.T) {
	live := Booking{Status: StatusConfirmed}
	assert.True(t, live.Occupies(true))
	assert.True(t, live.Occupies(false))

	done := Booking{Status: StatusCompleted}
	assert.True(t, done.Occupies(true))

	cancelled := Booking{Status: StatusCancelled}
	assert.False(t, cancelled.Occupies(true))
	assert.True(t, cancelled.Occupies(false))
}

func TestWeekdayOf(t *testing.T) {
	assert.Equal(t, Sunday, WeekdayOf(time.Sunday))
	assert.Equal(t, Monday, WeekdayOf(time.Monday))
	assert.Equal(t, Saturday, WeekdayOf(time.Saturday))
	assert.Equal(t, Weekday(""), WeekdayOf(time.Weekday(9)))
}

func TestParseWeekday(t *testing.T) {
	for in, want := range map[string]Weekday{
		"mon": Monday, "LUN": Monday, "dom": Sunday, "mie": Wednesday,
		"sáb": Saturday, "Friday": Friday,
	} {
		got, err := ParseWeekday(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseWeekday("funday")
	assert.Error(t, err)
}

func TestWeeklyAvailability_Normalize(t *testing.T) {
	w := WeeklyAvailability{
		"lun": {{Start: "09:00", End: "12:00"}},
		"mon": {{Start: "14:00", End: "16:00"}},
		"vie": {{Start: "10:00", End: "11:00"}},
	}
	got, err := w.Normalize()
	require.NoError(t, err)
	assert.Len(t, got[Monday], 2)
	assert.Len(t, got[Friday], 1)
	assert.NotContains(t, got, Weekday("lun"))

	_, err = WeeklyAvailability{"xyz": nil}.Normalize()
	assert.Error(t, err)
}
