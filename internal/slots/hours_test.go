package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHour(t *testing.T) {
	for _, ok := range []string{"00:00", "08:00", "19:00", "23:00"} {
		_, err := ParseHour(ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"", "8:00", "24:00", "08:30", "08", "ab:00", "08:00 "} {
		_, err := ParseHour(bad)
		assert.ErrorIs(t, err, ErrInvalidHour, bad)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-10-23")
	require.NoError(t, err)
	assert.Equal(t, time.Thursday, d.Weekday())

	for _, bad := range []string{"", "2025-1-23", "2025-13-01", "2025-02-30", "23/10/2025"} {
		_, err := ParseDate(bad)
		assert.ErrorIs(t, err, ErrInvalidDate, bad)
	}
}

func TestAddHour(t *testing.T) {
	got, err := AddHour("08:00")
	require.NoError(t, err)
	assert.Equal(t, "09:00", got)

	got, err = AddHour("23:00")
	require.NoError(t, err)
	assert.Equal(t, "00:00", got)

	_, err = AddHour("8")
	assert.Error(t, err)
}

func TestCombine(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*3600)
	got, err := Combine("2025-10-23", "08:00", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 10, 23, 8, 0, 0, 0, loc), got)

	_, err = Combine("2025-10-23", "8:00", loc)
	assert.ErrorIs(t, err, ErrInvalidHour)
}

func TestGenericHours(t *testing.T) {
	got := GenericHours(8, 19)
	assert.Len(t, got, 12)
	assert.Equal(t, "08:00", got[0])
	assert.Equal(t, "19:00", got[len(got)-1])
	assert.Contains(t, got, "14:00")

	assert.Empty(t, GenericHours(10, 9))
	assert.Len(t, GenericHours(-5, 40), 24)
}

func TestParseBound(t *testing.T) {
	tests := []struct {
		in   string
		hour int
		ok   bool
	}{
		{"09:00", 9, true},
		{"9:00", 9, true},
		{"09:30", 9, true},
		{"00:00", 0, true},
		{"24:00", 24, true},
		{"24:30", 0, false},
		{"25:00", 0, false},
		{"9", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		h, ok := ParseBound(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.hour, h, tt.in)
	}
}
