package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"techslots/internal/booking"
	"techslots/internal/config"
	"techslots/internal/events"
	"techslots/internal/profiles"
	"techslots/internal/store"
	"techslots/internal/store/backend"
	fsstore "techslots/internal/store/firestore"
)

func newLogger(cfg *config.Config) zerolog.Logger {
	var logger zerolog.Logger
	if strings.EqualFold(cfg.Log.Format, "json") {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		logger = zerolog.New(output).With().Timestamp().Logger()
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

// app holds the wired dependencies shared by the commands.
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	store    store.Store
	rdb      *redis.Client
	registry *profiles.Registry
	cache    *profiles.CachedSource
	svc      *booking.Service
	closers  []func() error
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	if cfg.Redis.Address != "" {
		a.rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	}

	st, err := backend.Open(ctx, cfg, a.rdb, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = st

	source, err := a.profileSource(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	policy, err := booking.ParseCancelledSlotPolicy(cfg.Booking.CancelledSlots)
	if err != nil {
		a.Close()
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := booking.Options{
		Location:         loc,
		Grace:            cfg.BookingGrace(),
		GenericFrom:      cfg.Booking.GenericFrom,
		GenericTo:        cfg.Booking.GenericTo,
		SoonCancelWindow: cfg.SoonCancelWindow(),
		CancelledSlots:   policy,
	}
	a.svc = booking.NewService(st, source, newEventBus(logger), opts, logger)
	return a, nil
}

func (a *app) profileSource(ctx context.Context) (booking.ProfileSource, error) {
	var source profiles.Source

	switch a.cfg.Profiles.Source {
	case "firestore":
		client, err := fsstore.NewClient(ctx, fsstore.ClientConfig{
			ProjectID:       a.cfg.Firebase.ProjectID,
			CredentialsFile: a.cfg.Firebase.CredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("profiles: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		source = profiles.NewFirestoreSource(client, a.cfg.Profiles.FirestoreCollection)
	default:
		a.registry = profiles.NewRegistry(nil)
		techs, err := config.LoadTechnicians(a.cfg.Profiles.Path)
		if err != nil {
			// Degraded mode covers missing profiles; keep serving.
			a.logger.Error().Err(err).Msg("failed to load technician profiles")
		} else if err := a.applyTechnicians(ctx, techs); err != nil {
			return nil, err
		}
		source = a.registry
	}

	if ttl := a.cfg.ProfilesCacheTTL(); ttl > 0 && a.rdb != nil {
		a.cache = profiles.NewCachedSource(source, a.rdb, ttl, a.cfg.Store.Redis.Prefix, a.logger)
		return a.cache, nil
	}
	return source, nil
}

// applyTechnicians replaces the registry contents and drops stale cache entries.
func (a *app) applyTechnicians(ctx context.Context, techs *config.TechniciansConfig) error {
	list, err := techs.ToModel()
	if err != nil {
		return fmt.Errorf("technician profiles: %w", err)
	}
	a.registry.Replace(list)
	if a.cache != nil {
		ids := make([]string, len(list))
		for i, t := range list {
			ids[i] = t.ID
		}
		if err := a.cache.Invalidate(ctx, ids...); err != nil {
			a.logger.Warn().Err(err).Msg("failed to invalidate profile cache")
		}
	}
	a.logger.Info().Str("profiles", techs.String()).Msg("technician profiles loaded")
	return nil
}

func (a *app) Close() {
	for _, closeFn := range a.closers {
		_ = closeFn()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error().Err(err).Msg("close store")
		}
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

// newEventBus logs every booking event as an audit trail.
func newEventBus(logger zerolog.Logger) *events.Bus {
	bus := events.NewBus()
	audit := logger.With().Str("component", "audit").Logger()

	bus.OnError(func(e events.Event, err error) {
		audit.Error().Err(err).Str("event", e.Type).Str("key", e.Booking.Key).Msg("event handler failed")
	})

	logEvent := func(e events.Event) error {
		ev := audit.Info().
			Str("event", e.Type).
			Str("key", e.Booking.Key).
			Str("technician_id", e.Booking.TechnicianID).
			Str("client_id", e.Booking.ClientID).
			Str("status", string(e.Booking.Status)).
			Str("actor_id", e.ActorID)
		if e.FromStatus != "" {
			ev = ev.Str("from", string(e.FromStatus))
		}
		ev.Msg("booking event")
		return nil
	}
	bus.Subscribe(events.BookingCreated, logEvent)
	bus.Subscribe(events.BookingStatusChanged, logEvent)
	return bus
}

// errorLevel keeps one-shot commands quiet unless something fails.
const errorLevel = zerolog.ErrorLevel
