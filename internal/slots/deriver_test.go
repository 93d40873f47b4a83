package slots

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techslots/internal/model"
)

// 2025-10-20 is a Monday.
const monday = "2025-10-20"

func TestDerive(t *testing.T) {
	tests := []struct {
		name         string
		availability model.WeeklyAvailability
		exceptions   model.ExceptionMap
		date         string
		want         []string
	}{
		{
			name:         "single monday range",
			availability: model.WeeklyAvailability{model.Monday: {{Start: "09:00", End: "12:00"}}},
			date:         monday,
			want:         []string{"09:00", "10:00", "11:00"},
		},
		{
			name:         "exception removes hour",
			availability: model.WeeklyAvailability{model.Monday: {{Start: "09:00", End: "12:00"}}},
			exceptions:   model.ExceptionMap{monday: {"10:00"}},
			date:         monday,
			want:         []string{"09:00", "11:00"},
		},
		{
			name:         "exception for another date is ignored",
			availability: model.WeeklyAvailability{model.Monday: {{Start: "09:00", End: "11:00"}}},
			exceptions:   model.ExceptionMap{"2025-10-27": {"09:00"}},
			date:         monday,
			want:         []string{"09:00", "10:00"},
		},
		{
			name:         "empty input",
			availability: model.WeeklyAvailability{},
			exceptions:   model.ExceptionMap{},
			date:         monday,
			want:         []string{},
		},
		{
			name:         "nil maps",
			date:         monday,
			want:         []string{},
		},
		{
			name:         "weekday without ranges",
			availability: model.WeeklyAvailability{model.Tuesday: {{Start: "09:00", End: "12:00"}}},
			date:         monday,
			want:         []string{},
		},
		{
			name: "overlapping ranges are merged and sorted",
			availability: model.WeeklyAvailability{model.Monday: {
				{Start: "14:00", End: "16:00"},
				{Start: "09:00", End: "11:00"},
				{Start: "10:00", End: "15:00"},
			}},
			date: monday,
			want: []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00"},
		},
		{
			name: "malformed ranges are skipped",
			availability: model.WeeklyAvailability{model.Monday: {
				{Start: "12:00", End: "12:00"},
				{Start: "15:00", End: "13:00"},
				{Start: "nine", End: "10:00"},
				{Start: "", End: ""},
				{Start: "25:00", End: "26:00"},
				{Start: "08:00", End: "09:00"},
			}},
			date: monday,
			want: []string{"08:00"},
		},
		{
			name:         "range may end at midnight",
			availability: model.WeeklyAvailability{model.Monday: {{Start: "22:00", End: "24:00"}}},
			date:         monday,
			want:         []string{"22:00", "23:00"},
		},
		{
			name:         "half hour bounds use the hour component",
			availability: model.WeeklyAvailability{model.Monday: {{Start: "09:30", End: "11:30"}}},
			date:         monday,
			want:         []string{"09:00", "10:00"},
		},
		{
			name:         "sunday is weekday zero",
			availability: model.WeeklyAvailability{model.Sunday: {{Start: "10:00", End: "11:00"}}},
			date:         "2025-10-19",
			want:         []string{"10:00"},
		},
		{
			name:         "invalid date",
			availability: model.WeeklyAvailability{model.Monday: {{Start: "09:00", End: "12:00"}}},
			date:         "20-10-2025",
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Derive(tt.availability, tt.exceptions, tt.date)
			require.NotNil(t, got, "Derive returns an empty slice, never nil")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeriveFor(t *testing.T) {
	tech := &model.Technician{
		ID:           "tech123",
		Availability: model.WeeklyAvailability{model.Monday: {{Start: "09:00", End: "10:00"}}},
	}
	assert.Equal(t, []string{"09:00"}, DeriveFor(tech, monday))
	assert.Empty(t, DeriveFor(nil, monday))
}

func TestAnnotate(t *testing.T) {
	got := Annotate([]string{"09:00", "23:00"}, map[string]bool{"09:00": true})
	want := []SlotInfo{
		{Start: "09:00", End: "10:00", Available: false},
		{Start: "23:00", End: "00:00", Available: true},
	}
	assert.Equal(t, want, got)
}

func TestFreeHours(t *testing.T) {
	got := FreeHours([]string{"09:00", "10:00", "11:00"}, map[string]bool{"10:00": true})
	assert.Equal(t, []string{"09:00", "11:00"}, got)
}
