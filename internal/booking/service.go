package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"techslots/internal/access"
	"techslots/internal/events"
	"techslots/internal/metrics"
	"techslots/internal/model"
	"techslots/internal/slots"
	"techslots/internal/store"
)

const degradedWarning = "technician availability could not be loaded; generic hours are offered"

// ProfileSource resolves a technician's availability template.
type ProfileSource interface {
	Technician(ctx context.Context, id string) (*model.Technician, error)
}

// Options tunes the booking rules.
type Options struct {
	Location         *time.Location
	Grace            time.Duration
	GenericFrom      int
	GenericTo        int
	SoonCancelWindow time.Duration
	CancelledSlots   CancelledSlotPolicy
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		Location:         time.Local,
		Grace:            DefaultGrace,
		GenericFrom:      8,
		GenericTo:        19,
		SoonCancelWindow: 2 * time.Hour,
		CancelledSlots:   ReleaseCancelled,
	}
}

// Service wires profiles, validation, the arbiter and access rules into the
// operations exposed by the API and CLI.
type Service struct {
	store    store.Store
	arbiter  *Arbiter
	profiles ProfileSource
	policy   *access.Policy
	bus      *events.Bus
	opts     Options
	now      func() time.Time
	logger   zerolog.Logger
}

// NewService creates a service. bus may be nil.
func NewService(st store.Store, profiles ProfileSource, bus *events.Bus, opts Options, logger zerolog.Logger) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.CancelledSlots == "" {
		opts.CancelledSlots = ReleaseCancelled
	}
	return &Service{
		store:    st,
		arbiter:  NewArbiter(st, opts.CancelledSlots, logger),
		profiles: profiles,
		policy:   access.NewPolicy(logger),
		bus:      bus,
		opts:     opts,
		now:      time.Now,
		logger:   logger.With().Str("component", "booking").Logger(),
	}
}

// SetClock replaces the wall clock, for tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Now reads the service clock.
func (s *Service) Now() time.Time {
	return s.now()
}

// grace is the validator's tolerance for starts just in the past.
func (s *Service) grace() time.Duration {
	if s.opts.Grace <= 0 {
		return DefaultGrace
	}
	return s.opts.Grace
}

// Location is the civil time zone bookings are interpreted in.
func (s *Service) Location() *time.Location {
	return s.opts.Location
}

// availability picks strict mode with the derived slots, or degraded mode
// with the generic hours when the profile is missing or unreadable.
func (s *Service) availability(ctx context.Context, technicianID, date string) (AvailabilityMode, []string, string) {
	var (
		tech *model.Technician
		err  error
	)
	if s.profiles != nil {
		tech, err = s.profiles.Technician(ctx, technicianID)
	}
	if err != nil || tech == nil {
		ev := s.logger.Warn().Str("technician_id", technicianID)
		if err != nil {
			ev = ev.Err(err)
		}
		ev.Msg("technician profile unavailable, using degraded mode")
		return Degraded(), slots.GenericHours(s.opts.GenericFrom, s.opts.GenericTo), degradedWarning
	}
	derived := slots.DeriveFor(tech, date)
	return Strict(derived), derived, ""
}

// SlotView is the slot listing for one technician and date.
type SlotView struct {
	TechnicianID string           `json:"technician_id"`
	Date         string           `json:"date"`
	Mode         string           `json:"mode"`
	Warning      string           `json:"warning,omitempty"`
	Slots        []slots.SlotInfo `json:"slots"`
}

// Slots lists the technician's hours for date. Hours already booked, or
// whose start is further in the past than Book would accept, are marked
// unavailable.
func (s *Service) Slots(ctx context.Context, technicianID, date string) (*SlotView, error) {
	if technicianID == "" {
		return nil, fmt.Errorf("%w: technician id is required", ErrInvalidRequest)
	}
	if _, err := slots.ParseDate(date); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	mode, hours, warning := s.availability(ctx, technicianID, date)

	booked, err := s.store.List(ctx, store.Filter{TechnicianID: technicianID, Date: date})
	if err != nil {
		return nil, &InfraError{Op: "list bookings", Err: err}
	}

	release := s.opts.CancelledSlots == ReleaseCancelled
	unavailable := make(map[string]bool)
	for i := range booked {
		if booked[i].Occupies(release) {
			unavailable[booked[i].Start] = true
		}
	}
	cutoff := s.now().Add(-s.grace())
	for _, h := range hours {
		if start, err := slots.Combine(date, h, s.opts.Location); err == nil && !start.After(cutoff) {
			unavailable[h] = true
		}
	}

	return &SlotView{
		TechnicianID: technicianID,
		Date:         date,
		Mode:         mode.String(),
		Warning:      warning,
		Slots:        slots.Annotate(hours, unavailable),
	}, nil
}

// BookRequest is a client's booking attempt.
type BookRequest struct {
	TechnicianID string
	Date         string
	Hour         string
	Description  string
}

// BookResult reports a booking attempt. Booking is nil when validation
// failed; Validation then says why.
type BookResult struct {
	Booking    *model.Booking
	Validation ValidationResult
	Mode       string
	Warning    string
}

// Book validates the request and asks the arbiter for the slot. Rule
// failures come back in the result; a taken slot is ErrSlotTaken.
func (s *Service) Book(ctx context.Context, actor access.Actor, req BookRequest) (*BookResult, error) {
	if actor.Authenticated() {
		if err := s.policy.CanCreate(actor); err != nil {
			return nil, err
		}
	}

	mode, _, warning := s.availability(ctx, req.TechnicianID, req.Date)
	res := &BookResult{Mode: mode.String(), Warning: warning}

	res.Validation = ValidateRequest(ValidationRequest{
		ClientPresent: actor.Authenticated(),
		Date:          req.Date,
		Hour:          req.Hour,
		Mode:          mode,
		Location:      s.opts.Location,
		Grace:         s.grace(),
	}, s.now())
	if res.Validation.OK() && strings.TrimSpace(req.TechnicianID) == "" {
		res.Validation = fail(ReasonMalformedInput, "technician_id", "select a technician")
	}
	if !res.Validation.OK() {
		metrics.IncBookingRejected(string(res.Validation.Reason))
		s.logger.Info().
			Str("technician_id", req.TechnicianID).
			Str("client_id", actor.ID).
			Str("date", req.Date).
			Str("hour", req.Hour).
			Str("reason", string(res.Validation.Reason)).
			Msg("booking request rejected")
		return res, nil
	}

	rec, err := s.arbiter.Create(ctx, CreateRequest{
		TechnicianID: req.TechnicianID,
		ClientID:     actor.ID,
		Date:         req.Date,
		Hour:         req.Hour,
		Description:  strings.TrimSpace(req.Description),
	})
	if errors.Is(err, ErrSlotTaken) {
		metrics.IncBookingConflict()
	}
	if err != nil {
		return nil, err
	}

	metrics.IncBookingCreated(mode.String())
	s.bus.Publish(events.Event{Type: events.BookingCreated, Booking: *rec, ActorID: actor.ID})
	res.Booking = rec
	return res, nil
}

// Get returns one booking the actor is a party to.
func (s *Service) Get(ctx context.Context, actor access.Actor, key string) (*model.Booking, error) {
	k, err := slots.ParseKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	b, err := s.store.Get(ctx, k)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, &InfraError{Op: "get booking", Err: err}
	}
	if err := s.policy.CanView(actor, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Confirm accepts a requested booking.
func (s *Service) Confirm(ctx context.Context, actor access.Actor, key string) (*model.Booking, error) {
	return s.transition(ctx, actor, key, model.StatusConfirmed, nil)
}

// Complete marks a confirmed booking as done.
func (s *Service) Complete(ctx context.Context, actor access.Actor, key string) (*model.Booking, error) {
	return s.transition(ctx, actor, key, model.StatusCompleted, nil)
}

// CancelOutcome is a cancelled booking plus an optional soft warning.
type CancelOutcome struct {
	Booking *model.Booking `json:"booking"`
	Warning string         `json:"warning,omitempty"`
}

// Cancel cancels a booking that has not started yet. Cancelling a confirmed
// booking close to its start succeeds with a warning.
func (s *Service) Cancel(ctx context.Context, actor access.Actor, key string) (*CancelOutcome, error) {
	var warning string
	guard := func(cur *model.Booking) error {
		start, err := cur.StartsAt(s.opts.Location)
		if err != nil {
			return err
		}
		now := s.now()
		if !start.After(now) {
			return ErrBookingInPast
		}
		warning = ""
		if cur.Status == model.StatusConfirmed && start.Sub(now) <= s.opts.SoonCancelWindow {
			warning = fmt.Sprintf("cancelled less than %s before the start", formatWindow(s.opts.SoonCancelWindow))
		}
		return nil
	}

	b, err := s.transition(ctx, actor, key, model.StatusCancelled, guard)
	if err != nil {
		return nil, err
	}
	if warning != "" {
		s.logger.Warn().Str("key", b.Key).Str("actor_id", actor.ID).Msg(warning)
	}
	return &CancelOutcome{Booking: b, Warning: warning}, nil
}

func formatWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return d.String()
}

func (s *Service) transition(ctx context.Context, actor access.Actor, key string, to model.Status, extra Guard) (*model.Booking, error) {
	k, err := slots.ParseKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	guard := func(cur *model.Booking) error {
		if err := s.policy.CanTransition(actor, cur, to); err != nil {
			return err
		}
		if extra != nil {
			return extra(cur)
		}
		return nil
	}

	updated, from, err := s.arbiter.Transition(ctx, k, to, guard)
	if err != nil {
		return nil, err
	}

	metrics.IncStatusChange(string(to))
	s.bus.Publish(events.Event{
		Type:       events.BookingStatusChanged,
		Booking:    *updated,
		FromStatus: from,
		ActorID:    actor.ID,
	})
	return updated, nil
}

// ListForClient returns the client's bookings ordered by date and hour.
func (s *Service) ListForClient(ctx context.Context, actor access.Actor, clientID string) ([]model.Booking, error) {
	if err := s.policy.CanList(actor, clientID, ""); err != nil {
		return nil, err
	}
	return s.list(ctx, store.Filter{ClientID: clientID})
}

// ListForTechnician returns the technician's agenda ordered by date and hour.
func (s *Service) ListForTechnician(ctx context.Context, actor access.Actor, technicianID string) ([]model.Booking, error) {
	if err := s.policy.CanList(actor, "", technicianID); err != nil {
		return nil, err
	}
	return s.list(ctx, store.Filter{TechnicianID: technicianID})
}

// ListAll returns every booking; used by exports.
func (s *Service) ListAll(ctx context.Context) ([]model.Booking, error) {
	return s.list(ctx, store.Filter{})
}

func (s *Service) list(ctx context.Context, f store.Filter) ([]model.Booking, error) {
	out, err := s.store.List(ctx, f)
	if err != nil {
		return nil, &InfraError{Op: "list bookings", Err: err}
	}
	return out, nil
}

// Partition splits bookings into upcoming (live and not yet started) and
// history (started, cancelled or completed), keeping order.
func Partition(list []model.Booking, now time.Time, loc *time.Location) (upcoming, history []model.Booking) {
	upcoming = make([]model.Booking, 0)
	history = make([]model.Booking, 0)
	for _, b := range list {
		start, err := b.StartsAt(loc)
		if err == nil && start.After(now) && !b.Status.IsTerminal() {
			upcoming = append(upcoming, b)
			continue
		}
		history = append(history, b)
	}
	return upcoming, history
}
