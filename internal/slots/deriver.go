// Package slots derives bookable hourly slots and the keys that identify them.
package slots

import (
	"sort"

	"techslots/internal/model"
)

// SlotInfo is a derived hour annotated for display.
type SlotInfo struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
}

// Derive returns the bookable hours for date, ascending and without
// duplicates. Malformed ranges, unknown weekdays and an invalid date all
// yield fewer (or zero) slots; Derive never fails.
func Derive(availability model.WeeklyAvailability, exceptions model.ExceptionMap, date string) []string {
	day, err := ParseDate(date)
	if err != nil {
		return []string{}
	}

	ranges := availability[model.WeekdayOf(day.Weekday())]
	if len(ranges) == 0 {
		return []string{}
	}

	excluded := make(map[int]bool)
	for _, e := range exceptions[date] {
		if h, ok := ParseBound(e); ok {
			excluded[h] = true
		}
	}

	seen := make(map[int]bool)
	for _, r := range ranges {
		from, okFrom := ParseBound(r.Start)
		to, okTo := ParseBound(r.End)
		if !okFrom || !okTo || from >= to {
			continue
		}
		for h := from; h < to; h++ {
			if !excluded[h] {
				seen[h] = true
			}
		}
	}

	hours := make([]int, 0, len(seen))
	for h := range seen {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	out := make([]string, len(hours))
	for i, h := range hours {
		out[i] = FormatHour(h)
	}
	return out
}

// DeriveFor is Derive over a technician profile. A nil profile has no slots.
func DeriveFor(t *model.Technician, date string) []string {
	if t == nil {
		return []string{}
	}
	return Derive(t.Availability, t.Exceptions, date)
}

// Annotate pairs each hour with its end and marks hours present in taken as
// unavailable.
func Annotate(hours []string, taken map[string]bool) []SlotInfo {
	out := make([]SlotInfo, 0, len(hours))
	for _, h := range hours {
		end, err := AddHour(h)
		if err != nil {
			continue
		}
		out = append(out, SlotInfo{Start: h, End: end, Available: !taken[h]})
	}
	return out
}

// FreeHours filters hours down to those not in taken.
func FreeHours(hours []string, taken map[string]bool) []string {
	out := make([]string, 0, len(hours))
	for _, h := range hours {
		if !taken[h] {
			out = append(out, h)
		}
	}
	return out
}
