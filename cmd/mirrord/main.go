package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Robert-d-s/enablment-back-sub000/internal/app/migrate"
	httpx "github.com/Robert-d-s/enablment-back-sub000/internal/http"
	"github.com/Robert-d-s/enablment-back-sub000/internal/repository/postgres"
	"github.com/Robert-d-s/enablment-back-sub000/internal/service/syncer"
	"github.com/Robert-d-s/enablment-back-sub000/internal/upstream"
	"github.com/Robert-d-s/enablment-back-sub000/internal/ws"
	"github.com/Robert-d-s/enablment-back-sub000/pkg/config"
	"github.com/Robert-d-s/enablment-back-sub000/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New("mirrord", slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	if err := runner.Ensure(ctx); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	repo := postgres.New(pool)
	issueHub := ws.NewHub()
	publisher := ws.NewIssuePublisher(issueHub, log)

	client := upstream.NewClient(cfg.UpstreamEndpoint, cfg.UpstreamAPIKey, cfg.UpstreamTimeout)
	sync := syncer.New(repo, client, publisher, log, cfg)

	if scheduler := syncer.NewScheduler(sync, cfg.SyncInterval, log); scheduler != nil {
		go scheduler.Run(ctx)
	}

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, sync, issueHub, limiter, cfg.AdminToken, cfg.WebhookSecret, cfg.SyncRunCooldown, pool.Ping)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("mirror server starting", "addr", cfg.Addr)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("mirror server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
