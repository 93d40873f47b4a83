package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateRequest(t *testing.T) {
	loc := time.UTC
	now := time.Date(2025, 10, 20, 10, 30, 0, 0, loc)
	strict := Strict([]string{"09:00", "10:00", "11:00", "14:00"})

	tests := []struct {
		name   string
		req    ValidationRequest
		reason Reason
		field  string
	}{
		{
			name:   "no client",
			req:    ValidationRequest{Date: "2025-10-21", Hour: "09:00", Mode: strict},
			reason: ReasonUnauthenticated,
		},
		{
			name:   "no client wins over bad input",
			req:    ValidationRequest{Mode: strict},
			reason: ReasonUnauthenticated,
		},
		{
			name:   "missing date",
			req:    ValidationRequest{ClientPresent: true, Hour: "09:00", Mode: strict},
			reason: ReasonMalformedInput,
			field:  "date",
		},
		{
			name:   "missing hour",
			req:    ValidationRequest{ClientPresent: true, Date: "2025-10-21", Mode: strict},
			reason: ReasonMalformedInput,
			field:  "hour",
		},
		{
			name:   "bad date",
			req:    ValidationRequest{ClientPresent: true, Date: "21/10/2025", Hour: "09:00", Mode: strict},
			reason: ReasonMalformedInput,
			field:  "date",
		},
		{
			name:   "hour not on the hour",
			req:    ValidationRequest{ClientPresent: true, Date: "2025-10-21", Hour: "09:30", Mode: strict},
			reason: ReasonMalformedInput,
			field:  "hour",
		},
		{
			name:   "two hours ago",
			req:    ValidationRequest{ClientPresent: true, Date: "2025-10-20", Hour: "08:00", Mode: strict},
			reason: ReasonTemporalViolation,
			field:  "hour",
		},
		{
			name:   "started thirty minutes ago",
			req:    ValidationRequest{ClientPresent: true, Date: "2025-10-20", Hour: "10:00", Mode: strict},
			reason: ReasonTemporalViolation,
		},
		{
			name:   "temporal checked before availability",
			req:    ValidationRequest{ClientPresent: true, Date: "2025-10-19", Hour: "22:00", Mode: strict},
			reason: ReasonTemporalViolation,
		},
		{
			name:   "outside derived slots",
			req:    ValidationRequest{ClientPresent: true, Date: "2025-10-21", Hour: "12:00", Mode: strict},
			reason: ReasonAvailabilityViolation,
			field:  "hour",
		},
		{
			name:   "zero mode rejects everything",
			req:    ValidationRequest{ClientPresent: true, Date: "2025-10-21", Hour: "09:00"},
			reason: ReasonAvailabilityViolation,
		},
		{
			name:   "inside derived slots",
			req:    ValidationRequest{ClientPresent: true, Date: "2025-10-20", Hour: "11:00", Mode: strict},
			reason: ReasonOK,
		},
		{
			name:   "degraded accepts any hour",
			req:    ValidationRequest{ClientPresent: true, Date: "2025-10-22", Hour: "14:00", Mode: Degraded()},
			reason: ReasonOK,
		},
		{
			name:   "degraded still checks time",
			req:    ValidationRequest{ClientPresent: true, Date: "2025-10-20", Hour: "07:00", Mode: Degraded()},
			reason: ReasonTemporalViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.Location = loc
			res := ValidateRequest(tt.req, now)
			assert.Equal(t, tt.reason, res.Reason)
			if tt.field != "" {
				assert.Equal(t, tt.field, res.Field)
			}
			if tt.reason != ReasonOK {
				assert.NotEmpty(t, res.Message)
			}
		})
	}
}

func TestValidateRequest_Grace(t *testing.T) {
	loc := time.UTC
	start := time.Date(2025, 10, 20, 10, 0, 0, 0, loc)
	req := ValidationRequest{ClientPresent: true, Date: "2025-10-20", Hour: "10:00", Mode: Degraded(), Location: loc}

	assert.True(t, ValidateRequest(req, start.Add(59*time.Second)).OK())
	assert.False(t, ValidateRequest(req, start.Add(60*time.Second)).OK())

	req.Grace = 5 * time.Minute
	assert.True(t, ValidateRequest(req, start.Add(4*time.Minute)).OK())
}

func TestValidateRequest_LocalTime(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 14:00 UTC is 09:00 at UTC-5, so a 10:00 local booking is still ahead.
	now := time.Date(2025, 10, 20, 14, 0, 0, 0, time.UTC)
	req := ValidationRequest{ClientPresent: true, Date: "2025-10-20", Hour: "10:00", Mode: Degraded(), Location: loc}
	assert.True(t, ValidateRequest(req, now).OK())

	req.Location = time.UTC
	assert.Equal(t, ReasonTemporalViolation, ValidateRequest(req, now).Reason)
}

func TestAvailabilityMode_String(t *testing.T) {
	assert.Equal(t, "strict", Strict(nil).String())
	assert.Equal(t, "degraded", Degraded().String())
	assert.True(t, Degraded().IsDegraded())
	assert.False(t, AvailabilityMode{}.IsDegraded())
}
