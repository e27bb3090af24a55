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

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v3"
	"golang.org/x/time/rate"

	"github.com/wgrabowski/tabliczki-ztm/internal/auth"
	"github.com/wgrabowski/tabliczki-ztm/internal/config"
	"github.com/wgrabowski/tabliczki-ztm/internal/handler"
	"github.com/wgrabowski/tabliczki-ztm/internal/logging"
	"github.com/wgrabowski/tabliczki-ztm/internal/middleware"
	"github.com/wgrabowski/tabliczki-ztm/internal/repo"
	"github.com/wgrabowski/tabliczki-ztm/internal/service"
	"github.com/wgrabowski/tabliczki-ztm/internal/ztm"
)

func serve(ctx context.Context, cmd *cli.Command) error {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// --- Logger -----------------------------------------------------------
	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	slog.Info("database connection established")

	readiness := map[string]handler.Pinger{"postgres": pool}

	// --- Token revocation ---------------------------------------------------
	var revocations auth.RevocationStore
	if cfg.Auth.RedisURL != "" {
		redisStore, err := auth.NewRedisRevocations(cfg.Auth.RedisURL)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		revocations = redisStore
		readiness["redis"] = redisStore
		slog.Info("redis connection established")
	} else {
		revocations = auth.NewMemoryRevocations()
		slog.Warn("REDIS_URL not set; logout revocations are kept in memory")
	}
	authenticator := auth.NewAuthenticator(
		auth.NewVerifier([]byte(cfg.Auth.JWTSecret), cfg.Auth.JWTAudience, cfg.Auth.CookieName),
		revocations,
	)

	// --- Upstream feed ------------------------------------------------------
	var limiter *rate.Limiter
	if cfg.ZTM.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.ZTM.RateLimit), max(cfg.ZTM.RateBurst, 1))
	}
	feed := ztm.NewClient(ztm.Config{
		StopsURL:      cfg.ZTM.StopsURL,
		DeparturesURL: cfg.ZTM.DeparturesURL,
		Cache:         ztm.NewFeedCache(time.Minute),
		Limiter:       limiter,
		Logger:        logger,
		Stops:         ztm.Policy{TTL: cfg.ZTM.StopsTTL.Duration, Timeout: cfg.ZTM.StopsTimeout.Duration},
		Departures:    ztm.Policy{TTL: cfg.ZTM.DeparturesTTL.Duration, Timeout: cfg.ZTM.DeparturesTimeout.Duration},
		AllDepartures: ztm.Policy{TTL: cfg.ZTM.DeparturesTTL.Duration, Timeout: cfg.ZTM.AllDeparturesTimeout.Duration},
	})

	// --- Services -----------------------------------------------------------
	setRepo := repo.NewSetRepo(pool)
	itemRepo := repo.NewSetItemRepo(pool)

	srv := handler.NewServer(handler.Deps{
		Sets:      service.NewSetService(setRepo),
		Items:     service.NewSetItemService(itemRepo),
		Board:     service.NewBoardService(itemRepo, feed, logger),
		Feed:      feed,
		Logout:    authenticator,
		Readiness: readiness,
		Logger:    logger,
	})

	// --- Router -----------------------------------------------------------
	// Order: RequestID → RealIP → Logger → Recoverer → CORS → body limit → identity.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Use(middleware.NewIdentity(authenticator, logger))
	r.Mount("/", srv.Routes())

	// --- HTTP Server ------------------------------------------------------
	// The write timeout leaves room for the slowest upstream call.
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutting down server")

	// Give in-flight requests up to 15 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	slog.Info("server stopped")
	return nil
}
