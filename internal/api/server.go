// Package api exposes the booking service over HTTP. Caller identity comes
// from headers set by a trusted gateway.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"techslots/internal/booking"
)

// Options tunes the HTTP server.
type Options struct {
	Address            string
	ReadTimeout        time.Duration
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// HTTPServer serves the booking API.
type HTTPServer struct {
	svc    *booking.Service
	logger zerolog.Logger
	server *http.Server
}

func NewHTTPServer(svc *booking.Service, opts Options, logger zerolog.Logger) *HTTPServer {
	if opts.Address == "" {
		opts.Address = ":8080"
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 10 * time.Second
	}

	s := &HTTPServer{
		svc:    svc,
		logger: logger.With().Str("component", "api").Logger(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/technicians/{id}/slots", s.handleSlots)
	mux.HandleFunc("POST /api/bookings", s.handleCreateBooking)
	mux.HandleFunc("GET /api/bookings", s.handleListBookings)
	mux.HandleFunc("GET /api/bookings/{key}", s.handleGetBooking)
	mux.HandleFunc("POST /api/bookings/{key}/confirm", s.handleConfirm)
	mux.HandleFunc("POST /api/bookings/{key}/cancel", s.handleCancel)
	mux.HandleFunc("POST /api/bookings/{key}/complete", s.handleComplete)

	var handler http.Handler = mux
	if opts.RateLimitPerSecond > 0 {
		handler = newRateLimiter(opts.RateLimitPerSecond, opts.RateLimitBurst).middleware(s.logger)(handler)
	}
	handler = withAccessLog(s.logger)(handler)
	handler = withRequestID(handler)

	s.server = &http.Server{
		Addr:              opts.Address,
		Handler:           handler,
		ReadHeaderTimeout: opts.ReadTimeout,
		ReadTimeout:       opts.ReadTimeout,
	}
	return s
}

// Handler returns the root handler with middleware applied.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(ctxShutdown)
	}()

	s.logger.Info().Str("addr", s.server.Addr).Msg("api server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
