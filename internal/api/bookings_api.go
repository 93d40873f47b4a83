package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"techslots/internal/access"
	"techslots/internal/booking"
	"techslots/internal/metrics"
	"techslots/internal/model"
)

// Identity headers set by the gateway in front of the API.
const (
	HeaderClientID  = "X-Client-ID"
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

// CreateBookingRequest is the body of POST /api/bookings.
type CreateBookingRequest struct {
	TechnicianID string `json:"technician_id"`
	Date         string `json:"date"` // Format: YYYY-MM-DD
	Hour         string `json:"hour"` // Format: HH:00
	Description  string `json:"description,omitempty"`
}

// CreateBookingResponse is returned with 201 Created.
type CreateBookingResponse struct {
	Booking *model.Booking `json:"booking"`
	Mode    string         `json:"mode"`
	Warning string         `json:"warning,omitempty"`
}

// ValidationErrorResponse explains a rejected booking request.
type ValidationErrorResponse struct {
	Error  string         `json:"error"`
	Reason booking.Reason `json:"reason"`
	Field  string         `json:"field,omitempty"`
}

// BookingListResponse splits the caller's bookings into upcoming and history.
type BookingListResponse struct {
	Upcoming []model.Booking `json:"upcoming"`
	History  []model.Booking `json:"history"`
}

// actorFromRequest reads the caller identity. X-Client-ID alone means a
// client; X-Actor-ID with X-Actor-Role covers technicians and admins.
func actorFromRequest(r *http.Request) (access.Actor, error) {
	id := r.Header.Get(HeaderActorID)
	if id == "" {
		id = r.Header.Get(HeaderClientID)
	}
	role, err := access.ParseRole(r.Header.Get(HeaderActorRole))
	if err != nil {
		return access.Actor{}, err
	}
	return access.Actor{ID: id, Role: role}, nil
}

// handleSlots lists a technician's hours for a date.
// GET /api/technicians/{id}/slots?date=YYYY-MM-DD
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")

	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	view, err := s.svc.Slots(r.Context(), r.PathValue("id"), date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleCreateBooking requests a slot for the calling client.
// POST /api/bookings
func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("create_booking")

	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req CreateBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := s.svc.Book(r.Context(), actor, booking.BookRequest{
		TechnicianID: req.TechnicianID,
		Date:         req.Date,
		Hour:         req.Hour,
		Description:  req.Description,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if !res.Validation.OK() {
		writeJSON(w, validationStatus(res.Validation.Reason), ValidationErrorResponse{
			Error:  res.Validation.Message,
			Reason: res.Validation.Reason,
			Field:  res.Validation.Field,
		})
		return
	}

	writeJSON(w, http.StatusCreated, CreateBookingResponse{
		Booking: res.Booking,
		Mode:    res.Mode,
		Warning: res.Warning,
	})
}

// handleListBookings lists bookings of one client or one technician.
// GET /api/bookings?client_id=...|technician_id=...
func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_bookings")

	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !actor.Authenticated() {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	clientID := r.URL.Query().Get("client_id")
	technicianID := r.URL.Query().Get("technician_id")

	var list []model.Booking
	switch {
	case clientID != "" && technicianID != "":
		writeError(w, http.StatusBadRequest, "use either client_id or technician_id")
		return
	case technicianID != "":
		list, err = s.svc.ListForTechnician(r.Context(), actor, technicianID)
	case clientID != "":
		list, err = s.svc.ListForClient(r.Context(), actor, clientID)
	case actor.Role == access.RoleTechnician:
		list, err = s.svc.ListForTechnician(r.Context(), actor, actor.ID)
	default:
		list, err = s.svc.ListForClient(r.Context(), actor, actor.ID)
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	upcoming, history := booking.Partition(list, s.svc.Now(), s.svc.Location())
	writeJSON(w, http.StatusOK, BookingListResponse{Upcoming: upcoming, History: history})
}

// GET /api/bookings/{key}
func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_booking")

	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}
	b, err := s.svc.Get(r.Context(), actor, r.PathValue("key"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// POST /api/bookings/{key}/confirm
func (s *HTTPServer) handleConfirm(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("confirm_booking")

	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}
	b, err := s.svc.Confirm(r.Context(), actor, r.PathValue("key"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// POST /api/bookings/{key}/cancel
func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel_booking")

	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}
	out, err := s.svc.Cancel(r.Context(), actor, r.PathValue("key"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// POST /api/bookings/{key}/complete
func (s *HTTPServer) handleComplete(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("complete_booking")

	actor, ok := s.requireActor(w, r)
	if !ok {
		return
	}
	b, err := s.svc.Complete(r.Context(), actor, r.PathValue("key"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *HTTPServer) requireActor(w http.ResponseWriter, r *http.Request) (access.Actor, bool) {
	actor, err := actorFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return access.Actor{}, false
	}
	if !actor.Authenticated() {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return access.Actor{}, false
	}
	return actor, true
}

func validationStatus(reason booking.Reason) int {
	switch reason {
	case booking.ReasonUnauthenticated:
		return http.StatusUnauthorized
	case booking.ReasonMalformedInput:
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var denied *access.AccessDeniedError
	switch {
	case errors.As(err, &denied):
		writeError(w, http.StatusForbidden, denied.Reason)
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, booking.ErrSlotTaken.Error())
	case errors.Is(err, booking.ErrBookingNotFound):
		writeError(w, http.StatusNotFound, "booking not found")
	case errors.Is(err, booking.ErrInvalidTransition), errors.Is(err, booking.ErrBookingInPast):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().
			Err(err).
			Str("request_id", RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, "something went wrong, please try again")
	}
}
