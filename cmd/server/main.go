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

	"github.com/ugaemi/fragmentia-server/internal/cache"
	"github.com/ugaemi/fragmentia-server/internal/config"
	"github.com/ugaemi/fragmentia-server/internal/handler"
	"github.com/ugaemi/fragmentia-server/internal/mission"
	"github.com/ugaemi/fragmentia-server/internal/session"
	"github.com/ugaemi/fragmentia-server/internal/stealth"
	"github.com/ugaemi/fragmentia-server/internal/store"
	"github.com/ugaemi/fragmentia-server/internal/ws"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	levels, stages, err := loadTables(cfg)
	if err != nil {
		return err
	}

	profiles, err := openProfileStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer profiles.Close()

	opts := session.Options{
		Levels:       levels,
		Stages:       stages,
		Recorder:     profiles,
		TickInterval: cfg.TickInterval(),
	}
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL, cfg.SnapshotTTL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rc.Close()
		opts.Cache = rc
		slog.Info("snapshot cache enabled", "ttl", cfg.SnapshotTTL)
	}

	hub := ws.NewHub()
	sm := session.NewManager(opts)
	defer sm.StopAll()
	router := handler.NewRouter(sm, profiles)

	hub.OnMessage = router.HandleMessage
	hub.OnDisconnect = router.HandleDisconnect

	go hub.Run(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler.NewHTTPRouter(hub, sm, router),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr, "tick_rate", cfg.TickRate)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func loadTables(cfg *config.Config) (stealth.LevelSet, []mission.StageDef, error) {
	levels := stealth.DefaultLevels()
	if cfg.LevelsFile != "" {
		var err error
		if levels, err = stealth.LoadLevelsFile(cfg.LevelsFile); err != nil {
			return nil, nil, err
		}
		slog.Info("loaded level tables", "file", cfg.LevelsFile, "levels", len(levels))
	}

	stages := mission.DefaultStages()
	if cfg.StagesFile != "" {
		var err error
		if stages, err = mission.LoadStagesFile(cfg.StagesFile); err != nil {
			return nil, nil, err
		}
		slog.Info("loaded stage tables", "file", cfg.StagesFile, "stages", len(stages))
	}
	return levels, stages, nil
}

func openProfileStore(ctx context.Context, cfg *config.Config) (store.ProfileStore, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL not set, profiles are kept in memory")
		return store.NewMemoryStore(), nil
	}
	pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	slog.Info("connected to postgres")
	return pg, nil
}

func setupLogger(cfg *config.Config) {
	var h slog.Handler
	opts := &slog.HandlerOptions{}

	switch cfg.LogLevel {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	switch cfg.LogFormat {
	case "json":
		h = slog.NewJSONHandler(os.Stdout, opts)
	default:
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(h))
}
