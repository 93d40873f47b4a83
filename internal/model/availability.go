package model

import "fmt"

// TimeRange is a bookable window on a weekday. Bounds are "HH:00" strings.
type TimeRange struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// WeeklyAvailability is a technician's recurring template keyed by weekday code.
type WeeklyAvailability map[Weekday][]TimeRange

// ExceptionMap lists hours that are unavailable on a given ISO date.
type ExceptionMap map[string][]string

// Normalize rewrites alias keys (e.g. "lun") to canonical codes and merges
// ranges that end up under the same day.
func (w WeeklyAvailability) Normalize() (WeeklyAvailability, error) {
	out := make(WeeklyAvailability, len(w))
	for k, ranges := range w {
		day, err := ParseWeekday(string(k))
		if err != nil {
			return nil, err
		}
		out[day] = append(out[day], ranges...)
	}
	return out, nil
}

// Technician is the profile the scheduling core reads availability from.
type Technician struct {
	ID           string             `json:"id" yaml:"id"`
	Name         string             `json:"name" yaml:"name"`
	City         string             `json:"city,omitempty" yaml:"city"`
	Published    bool               `json:"published" yaml:"published"`
	Availability WeeklyAvailability `json:"availability" yaml:"availability"`
	Exceptions   ExceptionMap       `json:"exceptions,omitempty" yaml:"exceptions"`
}

func (t *Technician) String() string {
	return fmt.Sprintf("Technician(%s, %d weekdays, %d exception dates)", t.ID, len(t.Availability), len(t.Exceptions))
}
