package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"techslots/internal/metrics"
	"techslots/internal/model"
	"techslots/internal/slots"
	"techslots/internal/store"
)

// CancelledSlotPolicy decides whether a cancelled booking frees its slot.
type CancelledSlotPolicy string

const (
	// ReleaseCancelled lets a new booking replace a cancelled record.
	ReleaseCancelled CancelledSlotPolicy = "release"
	// RetainCancelled keeps the slot occupied forever once booked.
	RetainCancelled CancelledSlotPolicy = "retain"
)

// ParseCancelledSlotPolicy accepts "release" (the default when empty) or "retain".
func ParseCancelledSlotPolicy(s string) (CancelledSlotPolicy, error) {
	switch p := CancelledSlotPolicy(s); p {
	case "":
		return ReleaseCancelled, nil
	case ReleaseCancelled, RetainCancelled:
		return p, nil
	}
	return "", fmt.Errorf("unknown cancelled slot policy %q", s)
}

// CreateRequest carries the fields of a new booking.
type CreateRequest struct {
	TechnicianID string
	ClientID     string
	Date         string
	Hour         string
	Description  string
}

// Arbiter materializes bookings at their slot key so that at most one live
// booking exists per technician and hour.
type Arbiter struct {
	store       store.Store
	policy      CancelledSlotPolicy
	transitions *Transitions
	logger      zerolog.Logger
}

// NewArbiter creates an arbiter over st.
func NewArbiter(st store.Store, policy CancelledSlotPolicy, logger zerolog.Logger) *Arbiter {
	if policy == "" {
		policy = ReleaseCancelled
	}
	return &Arbiter{
		store:       st,
		policy:      policy,
		transitions: NewTransitions(),
		logger:      logger.With().Str("component", "arbiter").Logger(),
	}
}

// Create writes a requested booking at the slot key if nothing occupies it.
// A taken slot returns ErrSlotTaken and is never retried; any other store
// failure is returned as *InfraError.
func (a *Arbiter) Create(ctx context.Context, req CreateRequest) (*model.Booking, error) {
	key, err := slots.NewKey(req.TechnicianID, req.Date, req.Hour)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if req.ClientID == "" {
		return nil, fmt.Errorf("%w: client id is required", ErrInvalidRequest)
	}
	end, _ := slots.AddHour(key.Start())

	rec := &model.Booking{
		Key:          key.String(),
		TechnicianID: key.TechnicianID,
		ClientID:     req.ClientID,
		Date:         key.Date,
		Start:        key.Start(),
		End:          end,
		Description:  req.Description,
		Status:       model.StatusRequested,
	}

	release := a.policy == ReleaseCancelled
	started := time.Now()
	err = a.store.RunTransaction(ctx, key, func(ctx context.Context, tx store.Tx) error {
		existing, err := tx.Get(ctx)
		if err != nil {
			return err
		}
		if existing != nil && existing.Occupies(release) {
			return ErrSlotTaken
		}
		rec.CreatedAt = time.Time{}
		return tx.Put(ctx, rec)
	})
	metrics.ObserveStoreTx("create", time.Since(started).Seconds())

	switch {
	case err == nil:
	case errors.Is(err, ErrSlotTaken), errors.Is(err, store.ErrConflict):
		a.logger.Info().Str("key", key.String()).Str("client_id", req.ClientID).Msg("slot already reserved")
		return nil, ErrSlotTaken
	default:
		a.logger.Error().Err(err).Str("key", key.String()).Msg("create booking failed")
		return nil, &InfraError{Op: "create booking", Err: err}
	}

	a.logger.Info().
		Str("key", rec.Key).
		Str("technician_id", rec.TechnicianID).
		Str("client_id", rec.ClientID).
		Msg("booking created")
	return rec, nil
}

// Guard inspects the current record before a transition is applied. A
// non-nil error aborts the transaction and is returned as is.
type Guard func(current *model.Booking) error

// Transition moves the booking at key to status to, checking the state
// machine and guard against the record read inside the transaction.
func (a *Arbiter) Transition(ctx context.Context, key slots.Key, to model.Status, guard Guard) (*model.Booking, model.Status, error) {
	var (
		updated *model.Booking
		from    model.Status
	)

	started := time.Now()
	err := a.store.RunTransaction(ctx, key, func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.Get(ctx)
		if err != nil {
			return err
		}
		if cur == nil {
			return ErrBookingNotFound
		}
		if guard != nil {
			if err := guard(cur); err != nil {
				return &guardError{err: err}
			}
		}
		if !a.transitions.CanTransition(cur.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.Status, to)
		}
		from = cur.Status
		cur.Status = to
		if err := tx.Put(ctx, cur); err != nil {
			return err
		}
		updated = cur
		return nil
	})
	metrics.ObserveStoreTx("transition", time.Since(started).Seconds())

	if err != nil {
		var ge *guardError
		if errors.As(err, &ge) {
			return nil, "", ge.err
		}
		if errors.Is(err, ErrBookingNotFound) || errors.Is(err, ErrInvalidTransition) {
			return nil, "", err
		}
		a.logger.Error().Err(err).Str("key", key.String()).Str("status", string(to)).Msg("status transition failed")
		return nil, "", &InfraError{Op: "update booking status", Err: err}
	}

	updated.Key = key.String()
	a.logger.Info().
		Str("key", updated.Key).
		Str("from", string(from)).
		Str("status", string(to)).
		Msg("booking status changed")
	return updated, from, nil
}

// guardError carries a guard's verdict through the store unchanged.
type guardError struct {
	err error
}

func (e *guardError) Error() string { return e.err.Error() }

func (e *guardError) Unwrap() error { return e.err }
