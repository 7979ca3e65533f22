package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-planner/internal/activity"
	"github.com/p-n-ai/pai-planner/internal/api"
	"github.com/p-n-ai/pai-planner/internal/auth"
	"github.com/p-n-ai/pai-planner/internal/curriculum"
	"github.com/p-n-ai/pai-planner/internal/gamification"
	"github.com/p-n-ai/pai-planner/internal/live"
	"github.com/p-n-ai/pai-planner/internal/platform/cache"
	"github.com/p-n-ai/pai-planner/internal/platform/config"
	"github.com/p-n-ai/pai-planner/internal/platform/database"
	"github.com/p-n-ai/pai-planner/internal/platform/logging"
	"github.com/p-n-ai/pai-planner/internal/profile"
	"github.com/p-n-ai/pai-planner/internal/schedule"
)

const readyTimeout = 2 * time.Second

// checkFunc reports whether a backing service is reachable.
type checkFunc func(context.Context) error

// app holds the wired server and what must be closed on exit.
type app struct {
	handler http.Handler
	checks  map[string]checkFunc
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := build(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.close()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      newMux(a.handler, a.checks),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "store", cfg.Store.Backend, "cache", cfg.Cache.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// build wires stores, caches and services according to cfg.
func build(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{checks: map[string]checkFunc{}}

	loader, err := curriculum.NewLoader(cfg.CurriculumPath)
	if err != nil {
		return nil, err
	}

	var (
		profiles    profile.Store
		credentials auth.CredentialStore
		events      interface {
			activity.Logger
			activity.Reader
		}
	)

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.checks["database"] = db.HealthCheck

		if cfg.Database.AutoMigrate {
			if err := db.Migrate(); err != nil {
				a.close()
				return nil, err
			}
		}

		ps, err := profile.NewPostgresStore(db.Pool)
		if err != nil {
			a.close()
			return nil, err
		}
		cs, err := auth.NewPostgresStore(db.Pool)
		if err != nil {
			a.close()
			return nil, err
		}
		profiles, credentials, events = ps, cs, activity.NewPostgresLogger(db.Pool)
	default:
		slog.Warn("using in-memory store; data is lost on restart")
		profiles, credentials, events = profile.NewMemoryStore(), auth.NewMemoryStore(), activity.NewMemoryLogger()
	}

	var (
		scheduleCache schedule.Cache = schedule.NopCache{}
		leaderboard   gamification.Leaderboard
	)
	if cfg.Cache.Enabled {
		c, err := cache.New(ctx, cfg.Cache)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connecting to cache: %w", err)
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		a.checks["cache"] = c.HealthCheck

		scheduleCache = schedule.NewRedisCache(c, time.Duration(cfg.Cache.ScheduleTTL)*time.Minute)
		leaderboard = gamification.NewRedisLeaderboard(c)
	}

	hub := live.NewHub()
	svc := schedule.NewService(schedule.ServiceConfig{
		Profiles:          profiles,
		Curriculum:        loader,
		Cache:             scheduleCache,
		Leaderboard:       leaderboard,
		Events:            events,
		Publisher:         hub,
		DefaultBoard:      cfg.Planner.DefaultBoard,
		DefaultClassLevel: cfg.Planner.DefaultClassLevel,
	})

	a.handler = api.New(api.Config{
		Auth:       auth.NewService(credentials, cfg.Auth.BcryptCost, cfg.Admin.Emails),
		Tokens:     auth.NewTokenManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.AccessTokenTTL)*time.Minute),
		Schedule:   svc,
		Curriculum: loader,
		Profiles:   profiles,
		Events:     events,
		Activity:   events,
		Hub:        hub,
	}).Handler()

	return a, nil
}

// newMux creates the HTTP router with health check endpoints in front of
// the application handler.
func newMux(handler http.Handler, checks map[string]checkFunc) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", handleReadyz(checks))
	mux.Handle("/", handler)
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func handleReadyz(checks map[string]checkFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		for name, check := range checks {
			if err := check(ctx); err != nil {
				slog.Warn("readiness check failed", "check", name, "error", err)
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}
}
