package slots

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DateLayout is the ISO calendar date format used everywhere in the API.
const DateLayout = "2006-01-02"

var (
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidHour = errors.New("invalid hour, expected HH:00")
)

var (
	hourPattern  = regexp.MustCompile(`^(0\d|1\d|2[0-3]):00$`)
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	boundPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// ParseDate parses a strict "YYYY-MM-DD" string.
func ParseDate(s string) (time.Time, error) {
	if !datePattern.MatchString(s) {
		return time.Time{}, ErrInvalidDate
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// ParseHour parses a strict "HH:00" slot hour and returns 0-23.
func ParseHour(s string) (int, error) {
	if !hourPattern.MatchString(s) {
		return 0, ErrInvalidHour
	}
	h, _ := strconv.Atoi(s[:2])
	return h, nil
}

// FormatHour renders h as "HH:00".
func FormatHour(h int) string {
	return fmt.Sprintf("%02d:00", h)
}

// AddHour returns the hour after s, wrapping 23:00 to 00:00.
func AddHour(s string) (string, error) {
	h, err := ParseHour(s)
	if err != nil {
		return "", err
	}
	return FormatHour((h + 1) % 24), nil
}

// Combine returns the instant of hour on date in loc.
func Combine(date, hour string, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	h, err := ParseHour(hour)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year(), d.Month(), d.Day(), h, 0, 0, 0, loc), nil
}

// GenericHours lists every hour from..to inclusive. It is the slot list offered
// when a technician's template cannot be loaded.
func GenericHours(from, to int) []string {
	if from < 0 {
		from = 0
	}
	if to > 23 {
		to = 23
	}
	out := make([]string, 0, max(to-from+1, 0))
	for h := from; h <= to; h++ {
		out = append(out, FormatHour(h))
	}
	return out
}

// ParseBound reads the hour of a range bound ("09:00", "9:00", "24:00").
// Minutes are ignored, so "09:30" counts as hour 9.
func ParseBound(s string) (int, bool) {
	m := boundPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	if h > 24 || (h == 24 && m[2] != "00") {
		return 0, false
	}
	return h, true
}
