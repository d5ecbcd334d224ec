// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/admin"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/auth"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/config"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/health"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/lockout"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/loyalty"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/middleware"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/notify"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/server"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/supplier"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/token"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/user"
)

const (
	drainDelay = 5 * time.Second

	referralRequests = 10
	referralWindow   = time.Hour

	supplierLinkRequests = 30
	supplierLinkWindow   = time.Minute
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	var (
		dispatcher notify.Dispatcher = notify.NewLogDispatcher(logger)
		broker     *notify.AMQPDispatcher
	)
	if cfg.Broker.URL != "" {
		broker = notify.NewAMQPDispatcher(
			cfg.Broker.URL,
			cfg.Broker.SupplierQueue,
			logger,
		)
		dispatcher = broker
		logger.Info("publishing notifications to broker",
			"queue", cfg.Broker.SupplierQueue,
		)
	}

	hasher, err := core.NewPasswordHasher(cfg.Password)
	if err != nil {
		return err
	}

	issuer, err := token.NewIssuer(cfg.Token)
	if err != nil {
		return err
	}

	validate := core.NewValidator()

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc, validate)

	loyaltyEngine := loyalty.NewEngine(loyalty.NewRepository(db.DB), logger)
	loyaltyHandler := loyalty.NewHandler(loyaltyEngine, validate)

	tracker := lockout.NewTracker(
		userRepo,
		lockout.PolicyFromConfig(cfg.Lockout),
		logger,
	)

	authSvc := auth.NewService(
		userSvc,
		hasher,
		tracker,
		issuer,
		auth.NewRepository(redis.Client),
		loyaltyEngine,
		cfg.Token,
		logger,
	)
	authHandler := auth.NewHandler(authSvc, validate, cfg.Session)

	supplierSvc := supplier.NewService(
		supplier.NewRepository(db.DB),
		issuer,
		supplier.NewIssueLimiter(
			redis.Client,
			cfg.Supplier.MaxTokensPerHour,
			cfg.Supplier.RateWindow,
		),
		dispatcher,
		cfg.Supplier,
		logger,
	)
	supplierHandler := supplier.NewHandler(
		supplierSvc,
		validate,
		cfg.Supplier.ValidationTimeout,
	)

	deps := []health.Dependency{
		{Name: "database", Checker: db},
		{Name: "redis", Checker: redis},
	}
	if broker != nil {
		deps = append(deps, health.Dependency{Name: "broker", Checker: broker})
	}
	healthHandler := health.NewHandler(deps...)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		Accounts:   userSvc,
		Orders:     supplierSvc,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Name: "global",
			Limit: middleware.PerPeriod(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	loginLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Name:  "login",
		Limit: middleware.PerWindow(cfg.RateLimit.LoginRequests, cfg.RateLimit.LoginWindow),
	}).Handler
	registerLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Name:  "register",
		Limit: middleware.PerWindow(cfg.RateLimit.RegisterRequests, cfg.RateLimit.RegisterWindow),
	}).Handler
	referralLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Name:    "referral",
		Limit:   middleware.PerWindow(referralRequests, referralWindow),
		KeyFunc: middleware.KeyByUserAndEndpoint,
	}).Handler
	supplierLinkLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Name:  "supplier-link",
		Limit: middleware.PerWindow(supplierLinkRequests, supplierLinkWindow),
	}).Handler

	authenticator := middleware.Authenticator(authSvc)

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator, loginLimiter, registerLimiter)
		userHandler.RegisterRoutes(r, authenticator)
		loyaltyHandler.RegisterRoutes(r, authenticator, referralLimiter)
		supplierHandler.RegisterRoutes(r, authenticator, supplierLinkLimiter)

		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticator)
			r.Use(middleware.RequireAdmin)

			adminHandler.RegisterRoutes(r)
			userHandler.RegisterAdminRoutes(r)
			supplierHandler.RegisterAdminRoutes(r)
		})
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if broker != nil {
		if err := broker.Close(); err != nil {
			logger.Error("broker close error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
