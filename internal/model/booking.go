package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a booking.
type Status string

const (
	StatusRequested Status = "requested"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// legacyStatuses maps values written by older clients.
var legacyStatuses = map[string]Status{
	"solicitada": StatusRequested,
	"pending":    StatusRequested,
	"confirmada": StatusConfirmed,
	"cancelada":  StatusCancelled,
	"canceled":   StatusCancelled,
	"completada": StatusCompleted,
}

// ParseStatus accepts canonical and legacy status values.
func ParseStatus(s string) (Status, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch st := Status(s); st {
	case StatusRequested, StatusConfirmed, StatusCancelled, StatusCompleted:
		return st, nil
	}
	if st, ok := legacyStatuses[s]; ok {
		return st, nil
	}
	return "", fmt.Errorf("unknown booking status %q", s)
}

// IsTerminal reports whether no transition leaves the status.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Booking is the persisted reservation record. Key is the document identity
// and is not stored as a field in document stores.
type Booking struct {
	Key          string    `json:"key" bson:"_id" firestore:"-"`
	TechnicianID string    `json:"technicianId" bson:"technicianId" firestore:"technicianId"`
	ClientID     string    `json:"clientId" bson:"clientId" firestore:"clientId"`
	Date         string    `json:"date" bson:"date" firestore:"date"`
	Start        string    `json:"start" bson:"start" firestore:"start"`
	End          string    `json:"end" bson:"end" firestore:"end"`
	Description  string    `json:"description" bson:"description" firestore:"description"`
	Status       Status    `json:"status" bson:"status" firestore:"status"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt" firestore:"createdAt,serverTimestamp"`
}

// StartsAt returns the start instant in loc.
func (b *Booking) StartsAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", b.Date+" "+b.Start, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("booking %s start: %w", b.Key, err)
	}
	return t, nil
}

// Occupies reports whether the record blocks a new booking at its key.
// Cancelled records only block when releaseCancelled is false.
func (b *Booking) Occupies(releaseCancelled bool) bool {
	if b.Status == StatusCancelled {
		return !releaseCancelled
	}
	return true
}
