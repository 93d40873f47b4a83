package booking

import (
	"time"

	"techslots/internal/slots"
)

// DefaultGrace tolerates clock skew between the caller and the server.
const DefaultGrace = 60 * time.Second

// Reason classifies a validation outcome.
type Reason string

const (
	ReasonOK                    Reason = "ok"
	ReasonUnauthenticated       Reason = "unauthenticated"
	ReasonMalformedInput        Reason = "malformed_input"
	ReasonTemporalViolation     Reason = "temporal_violation"
	ReasonAvailabilityViolation Reason = "availability_violation"
)

// AvailabilityMode says whether the hour must belong to the technician's
// derived slots. The zero value is strict with no slots and rejects every
// hour.
type AvailabilityMode struct {
	degraded bool
	slots    map[string]bool
}

// Strict requires the hour to be one of derived.
func Strict(derived []string) AvailabilityMode {
	set := make(map[string]bool, len(derived))
	for _, h := range derived {
		set[h] = true
	}
	return AvailabilityMode{slots: set}
}

// Degraded skips the membership check. It is used when the technician's
// template could not be loaded.
func Degraded() AvailabilityMode {
	return AvailabilityMode{degraded: true}
}

// IsDegraded reports whether membership is skipped.
func (m AvailabilityMode) IsDegraded() bool {
	return m.degraded
}

func (m AvailabilityMode) String() string {
	if m.degraded {
		return "degraded"
	}
	return "strict"
}

func (m AvailabilityMode) allows(hour string) bool {
	return m.degraded || m.slots[hour]
}

// ValidationRequest is a proposed booking as seen by the validator.
type ValidationRequest struct {
	ClientPresent bool
	Date          string
	Hour          string
	Mode          AvailabilityMode
	// Location is the caller's civil time zone; nil means time.Local.
	Location *time.Location
	// Grace is how far in the past the start may be; zero means DefaultGrace.
	Grace time.Duration
}

// ValidationResult is Ok or the first rule that failed.
type ValidationResult struct {
	Reason  Reason `json:"reason"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the request passed every rule.
func (r ValidationResult) OK() bool {
	return r.Reason == ReasonOK
}

func fail(reason Reason, field, msg string) ValidationResult {
	return ValidationResult{Reason: reason, Field: field, Message: msg}
}

// ValidateRequest applies the booking rules in order and returns the first
// failure. It has no side effects.
func ValidateRequest(req ValidationRequest, now time.Time) ValidationResult {
	if !req.ClientPresent {
		return fail(ReasonUnauthenticated, "", "sign in as a client to book")
	}

	if req.Date == "" || req.Hour == "" {
		field := "date"
		if req.Date != "" {
			field = "hour"
		}
		return fail(ReasonMalformedInput, field, "select a date and an hour")
	}
	if _, err := slots.ParseDate(req.Date); err != nil {
		return fail(ReasonMalformedInput, "date", err.Error())
	}
	if _, err := slots.ParseHour(req.Hour); err != nil {
		return fail(ReasonMalformedInput, "hour", err.Error())
	}

	grace := req.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}
	start, err := slots.Combine(req.Date, req.Hour, req.Location)
	if err != nil {
		return fail(ReasonMalformedInput, "date", err.Error())
	}
	if !start.After(now.Add(-grace)) {
		return fail(ReasonTemporalViolation, "hour", "the booking must be in the future")
	}

	if !req.Mode.allows(req.Hour) {
		return fail(ReasonAvailabilityViolation, "hour", "the technician is not available at that hour")
	}

	return ValidationResult{Reason: ReasonOK}
}
