package slots

import (
	"fmt"
	"strconv"
	"strings"
)

// keySuffixLen is len("_YYYYMMDD_HH").
const keySuffixLen = 12

// Key identifies the one booking that may exist for a technician at an hour.
// Its string form is "{technicianId}_{YYYYMMDD}_{HH}". The date and hour part
// is fixed width, so ParseKey reads from the right and technician IDs that
// contain "_" cannot make two keys collide.
type Key struct {
	TechnicianID string
	Date         string // YYYY-MM-DD
	Hour         int    // 0-23
}

// NewKey validates its inputs and builds a Key.
func NewKey(technicianID, date, hour string) (Key, error) {
	if strings.TrimSpace(technicianID) == "" {
		return Key{}, fmt.Errorf("technician id is required")
	}
	if _, err := ParseDate(date); err != nil {
		return Key{}, err
	}
	h, err := ParseHour(hour)
	if err != nil {
		return Key{}, err
	}
	return Key{TechnicianID: technicianID, Date: date, Hour: h}, nil
}

// BuildKey renders the key string for a (technician, date, hour) triple.
func BuildKey(technicianID, date, hour string) string {
	hh := hour
	if len(hh) > 2 {
		hh = hh[:2]
	}
	return technicianID + "_" + strings.ReplaceAll(date, "-", "") + "_" + hh
}

func (k Key) String() string {
	return fmt.Sprintf("%s_%s_%02d", k.TechnicianID, strings.ReplaceAll(k.Date, "-", ""), k.Hour)
}

// Start returns the slot hour as "HH:00".
func (k Key) Start() string {
	return FormatHour(k.Hour)
}

// ParseKey decodes a key string produced by Key.String or BuildKey.
func ParseKey(s string) (Key, error) {
	if len(s) <= keySuffixLen {
		return Key{}, fmt.Errorf("invalid slot key %q", s)
	}
	tid, suffix := s[:len(s)-keySuffixLen], s[len(s)-keySuffixLen:]
	if suffix[0] != '_' || suffix[9] != '_' {
		return Key{}, fmt.Errorf("invalid slot key %q", s)
	}

	ymd, hh := suffix[1:9], suffix[10:]
	date := ymd[:4] + "-" + ymd[4:6] + "-" + ymd[6:]
	if _, err := ParseDate(date); err != nil {
		return Key{}, fmt.Errorf("invalid slot key %q: %w", s, err)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || !isDigit(hh[0]) || !isDigit(hh[1]) || h > 23 {
		return Key{}, fmt.Errorf("invalid slot key %q: %w", s, ErrInvalidHour)
	}
	if strings.TrimSpace(tid) == "" {
		return Key{}, fmt.Errorf("invalid slot key %q: empty technician id", s)
	}
	return Key{TechnicianID: tid, Date: date, Hour: h}, nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
