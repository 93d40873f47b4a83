// Package access decides which caller may create or move a booking.
package access

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"techslots/internal/model"
)

// Role is the caller's role as asserted by the identity gateway.
type Role string

const (
	RoleClient     Role = "client"
	RoleTechnician Role = "technician"
	RoleAdmin      Role = "admin"
)

// ParseRole accepts the three known roles; anything else is rejected.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleClient, RoleTechnician, RoleAdmin:
		return r, nil
	case "":
		return RoleClient, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Actor is an authenticated caller.
type Actor struct {
	ID   string
	Role Role
}

// Authenticated reports whether the actor carries an identity.
func (a Actor) Authenticated() bool {
	return a.ID != ""
}

// Policy implements the booking permission rules.
type Policy struct {
	logger zerolog.Logger
}

// NewPolicy creates a policy.
func NewPolicy(logger zerolog.Logger) *Policy {
	return &Policy{logger: logger.With().Str("component", "access").Logger()}
}

// CanCreate allows only clients to request bookings.
func (p *Policy) CanCreate(actor Actor) error {
	if actor.Role != RoleClient {
		return p.deny(actor, "", "only clients can request bookings")
	}
	return nil
}

// CanView allows the booking's client, its technician and admins.
func (p *Policy) CanView(actor Actor, b *model.Booking) error {
	if actor.Role == RoleAdmin || p.isParty(actor, b) {
		return nil
	}
	return p.deny(actor, b.Key, "booking belongs to someone else")
}

// CanList restricts listings to the caller's own bookings unless the caller
// is an admin.
func (p *Policy) CanList(actor Actor, clientID, technicianID string) error {
	switch actor.Role {
	case RoleAdmin:
		return nil
	case RoleClient:
		if clientID == actor.ID && technicianID == "" {
			return nil
		}
	case RoleTechnician:
		if technicianID == actor.ID && clientID == "" {
			return nil
		}
	}
	return p.deny(actor, "", "can only list your own bookings")
}

// CanTransition applies the per-status rules: the technician (or an admin)
// confirms and completes, either party (or an admin) cancels.
func (p *Policy) CanTransition(actor Actor, b *model.Booking, to model.Status) error {
	if actor.Role == RoleAdmin {
		return nil
	}
	switch to {
	case model.StatusConfirmed, model.StatusCompleted:
		if actor.Role == RoleTechnician && actor.ID == b.TechnicianID {
			return nil
		}
		return p.deny(actor, b.Key, "only the assigned technician can do this")
	case model.StatusCancelled:
		if p.isParty(actor, b) {
			return nil
		}
		return p.deny(actor, b.Key, "only the client or the technician can cancel")
	}
	return p.deny(actor, b.Key, fmt.Sprintf("status %q cannot be set directly", to))
}

func (p *Policy) isParty(actor Actor, b *model.Booking) bool {
	switch actor.Role {
	case RoleClient:
		return actor.ID == b.ClientID
	case RoleTechnician:
		return actor.ID == b.TechnicianID
	}
	return false
}

func (p *Policy) deny(actor Actor, key, reason string) error {
	p.logger.Info().
		Str("actor_id", actor.ID).
		Str("role", string(actor.Role)).
		Str("key", key).
		Str("reason", reason).
		Msg("access denied")
	return &AccessDeniedError{Reason: reason}
}

// AccessDeniedError is returned when the actor may not perform an action.
type AccessDeniedError struct {
	Reason string
}

func (e *AccessDeniedError) Error() string {
	return e.Reason
}

// IsAccessDenied checks if error is access denied.
func IsAccessDenied(err error) bool {
	var ade *AccessDeniedError
	return errors.As(err, &ade)
}
