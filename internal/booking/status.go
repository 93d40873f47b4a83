package booking

import "techslots/internal/model"

// Transitions is the booking status state machine.
type Transitions struct {
	allowed map[model.Status][]model.Status
}

// NewTransitions returns the standard lifecycle: a request is confirmed or
// cancelled, a confirmed booking is cancelled or completed, and cancelled and
// completed are final.
func NewTransitions() *Transitions {
	return &Transitions{
		allowed: map[model.Status][]model.Status{
			model.StatusRequested: {model.StatusConfirmed, model.StatusCancelled},
			model.StatusConfirmed: {model.StatusCancelled, model.StatusCompleted},
			model.StatusCancelled: {},
			model.StatusCompleted: {},
		},
	}
}

// CanTransition checks if transition is allowed.
func (t *Transitions) CanTransition(from, to model.Status) bool {
	for _, s := range t.allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Next lists the statuses reachable from from.
func (t *Transitions) Next(from model.Status) []model.Status {
	return append([]model.Status(nil), t.allowed[from]...)
}
