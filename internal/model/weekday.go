package model

import (
	"fmt"
	"strings"
	"time"
)

// Weekday is the code used as a key in WeeklyAvailability.
type Weekday string

const (
	Sunday    Weekday = "sun"
	Monday    Weekday = "mon"
	Tuesday   Weekday = "tue"
	Wednesday Weekday = "wed"
	Thursday  Weekday = "thu"
	Friday    Weekday = "fri"
	Saturday  Weekday = "sat"
)

// weekdayCodes is indexed by time.Weekday (0 = Sunday).
var weekdayCodes = [7]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

// weekdayAliases maps accepted spellings, including the legacy Spanish
// profile keys, to canonical codes.
var weekdayAliases = map[string]Weekday{
	"sun": Sunday, "sunday": Sunday, "dom": Sunday, "domingo": Sunday,
	"mon": Monday, "monday": Monday, "lun": Monday, "lunes": Monday,
	"tue": Tuesday, "tuesday": Tuesday, "mar": Tuesday, "martes": Tuesday,
	"wed": Wednesday, "wednesday": Wednesday, "mie": Wednesday, "mié": Wednesday, "miercoles": Wednesday,
	"thu": Thursday, "thursday": Thursday, "jue": Thursday, "jueves": Thursday,
	"fri": Friday, "friday": Friday, "vie": Friday, "viernes": Friday,
	"sat": Saturday, "saturday": Saturday, "sab": Saturday, "sáb": Saturday, "sabado": Saturday,
}

// WeekdayOf returns the code for a Go weekday.
func WeekdayOf(d time.Weekday) Weekday {
	if d < time.Sunday || d > time.Saturday {
		return ""
	}
	return weekdayCodes[d]
}

// ParseWeekday resolves a code or alias, case-insensitively.
func ParseWeekday(s string) (Weekday, error) {
	w, ok := weekdayAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown weekday %q", s)
	}
	return w, nil
}

// Valid reports whether w is one of the canonical codes.
func (w Weekday) Valid() bool {
	for _, c := range weekdayCodes {
		if c == w {
			return true
		}
	}
	return false
}

// Weekdays returns the canonical codes starting from Sunday.
func Weekdays() []Weekday {
	out := make([]Weekday, len(weekdayCodes))
	copy(out, weekdayCodes[:])
	return out
}
