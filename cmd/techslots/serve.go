package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"techslots/internal/api"
	"techslots/internal/config"
	"techslots/internal/metrics"
	"techslots/internal/store"
	"techslots/internal/store/sqlite"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the booking API with health and metrics endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := newLogger(cfg)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.registry != nil {
				a.watchProfiles(ctx)
			}

			go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, a.store, a.rdb, &logger)

			if cfg.Monitoring.PrometheusEnabled {
				metrics.Register()
				go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
			}

			if cfg.Backup.Enabled {
				if sq, ok := a.store.(*sqlite.Store); ok {
					go sq.RunBackups(ctx, sqlite.BackupConfig{
						Dir:       cfg.BackupDir(),
						Interval:  cfg.BackupInterval(),
						Retention: cfg.BackupRetention(),
					})
				} else {
					logger.Warn().Str("driver", cfg.Store.Driver).Msg("backups are only supported for the sqlite store")
				}
			}

			srv := api.NewHTTPServer(a.svc, api.Options{
				Address:            cfg.HTTP.Address,
				ReadTimeout:        cfg.ReadTimeout(),
				RateLimitPerSecond: cfg.HTTP.RateLimitPerSecond,
				RateLimitBurst:     cfg.HTTP.RateLimitBurst,
			}, logger)

			logger.Info().Str("version", Version).Msg("techslots started")
			return srv.Run(ctx)
		},
	}
}

// watchProfiles hot-reloads technicians.yaml into the registry.
func (a *app) watchProfiles(ctx context.Context) {
	err := config.WatchTechnicians(ctx, a.cfg.Profiles.Path, a.cfg.ProfilesReload(), func(updated *config.TechniciansConfig) {
		if updated == nil {
			return
		}
		if err := a.applyTechnicians(ctx, updated); err != nil {
			a.logger.Error().Err(err).Msg("failed to reapply technician profiles")
			return
		}
		a.logger.Info().Time("reloaded_at", time.Now()).Msg("technician profiles reloaded")
	}, func(err error) {
		a.logger.Error().Err(err).Msg("technician profiles reload failed")
	})
	if err != nil {
		a.logger.Error().Err(err).Msg("technician profiles watch failed")
	}
}

// readinessCheck pings one dependency.
type readinessCheck struct {
	name string
	ping func(ctx context.Context) error
}

func readinessChecks(st store.Store, rdb *redis.Client) []readinessCheck {
	checks := []readinessCheck{{name: "store", ping: st.Ping}}
	if rdb != nil {
		checks = append(checks, readinessCheck{name: "redis", ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	return checks
}

// healthHandler serves /healthz (process up) and /readyz (every check passes).
func healthHandler(checks []readinessCheck) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		for _, c := range checks {
			if err := c.ping(ctx); err != nil {
				http.Error(w, c.name+" not ready", http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("ready"))
	})
	return mux
}

func startHealthServer(ctx context.Context, port int, st store.Store, rdb *redis.Client, logger *zerolog.Logger) {
	serveUntilDone(ctx, "health", port, healthHandler(readinessChecks(st, rdb)), logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	serveUntilDone(ctx, "metrics", port, mux, logger)
}

// serveUntilDone runs a side server on port and shuts it down with ctx.
func serveUntilDone(ctx context.Context, name string, port int, h http.Handler, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("server", name).Int("port", port).Msg("side server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Str("server", name).Msg("side server stopped")
	}
}
