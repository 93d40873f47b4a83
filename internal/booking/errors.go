package booking

import (
	"errors"
	"fmt"
)

var (
	ErrSlotTaken         = errors.New("slot already reserved, pick another time")
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrBookingInPast     = errors.New("booking has already started")
	ErrInvalidRequest    = errors.New("invalid booking request")
)

// InfraError wraps an unexpected store failure. Callers should show a
// generic error and may offer a manual retry.
type InfraError struct {
	Op  string
	Err error
}

func (e *InfraError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfraError) Unwrap() error {
	return e.Err
}

// IsInfrastructure reports whether err is (or wraps) an InfraError.
func IsInfrastructure(err error) bool {
	var ie *InfraError
	return errors.As(err, &ie)
}
