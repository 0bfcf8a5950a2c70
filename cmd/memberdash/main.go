package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/odyssey-erp/memberdash/internal/app"
	"github.com/odyssey-erp/memberdash/internal/auth"
	"github.com/odyssey-erp/memberdash/internal/collection"
	"github.com/odyssey-erp/memberdash/internal/observability"
	"github.com/odyssey-erp/memberdash/internal/overview"
	"github.com/odyssey-erp/memberdash/internal/platform/cache"
	"github.com/odyssey-erp/memberdash/internal/platform/db"
	"github.com/odyssey-erp/memberdash/internal/shared"
	"github.com/odyssey-erp/memberdash/internal/users"
	"github.com/odyssey-erp/memberdash/internal/view"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var recorder auth.Recorder = auth.NopRecorder{}
	if cfg.AuditEnabled() {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		pgRecorder := auth.NewPGRecorder(pool)
		if err := pgRecorder.EnsureSchema(ctx); err != nil {
			logger.Error("prepare audit table", slog.Any("error", err))
			os.Exit(1)
		}
		recorder = pgRecorder
		logger.Info("login audit enabled")
	}

	sessionManager := shared.NewSessionManager(redisClient, "memberdash_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	collectionClient := collection.NewClient(cfg.APIURL,
		collection.WithPath(cfg.APIUsersPath),
		collection.WithTimeout(cfg.APITimeout),
		collection.WithObserver(metrics),
	)

	provider := auth.NewProvider()
	authClient := auth.NewRemoteClient(cfg.APIURL, cfg.APILoginPath, &http.Client{Timeout: cfg.APITimeout})
	authHandler := auth.NewHandler(logger, authClient, recorder, templates, sessionManager, csrfManager, cfg.LoginRateLimit)

	registry := users.NewRegistry(collectionClient, users.RegistryConfig{
		Debounce: cfg.ListDebounce,
		IdleTTL:  cfg.ListIdleTTL,
		Logger:   logger,
		Observer: metrics,
		Gauge:    metrics,
	})
	authHandler.OnSessionEnd(registry.Release)
	go registry.Run(ctx)
	usersHandler := users.NewHandler(logger, registry, provider.Token, templates, csrfManager)

	overviewCache := cache.NewJSON(redisClient, "memberdash", cfg.OverviewCacheTTL)
	overviewService := overview.NewService(collectionClient, overviewCache, logger, metrics)
	overviewHandler := overview.NewHandler(logger, overviewService, templates, csrfManager)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Templates:       templates,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		Provider:        provider,
		AuthHandler:     authHandler,
		UsersHandler:    usersHandler,
		OverviewHandler: overviewHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("api", cfg.APIURL))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	registry.Close()
}
