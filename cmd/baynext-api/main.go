package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/baynext/baynext/pkg/api"
	"github.com/baynext/baynext/pkg/audit"
	"github.com/baynext/baynext/pkg/auth"
	"github.com/baynext/baynext/pkg/config"
	"github.com/baynext/baynext/pkg/jobs"
	"github.com/baynext/baynext/pkg/middleware"
	"github.com/baynext/baynext/pkg/observability"
	"github.com/baynext/baynext/pkg/rbac"
	"github.com/baynext/baynext/pkg/storage"
	"github.com/baynext/baynext/pkg/storage/sqlstore"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, os.Stdout)
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelProviders, err := observability.InitOTel(ctx, cfg.OTelConfig(), logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize OpenTelemetry")
	}

	store, err := sqlstore.NewFromConfig(ctx, cfg.Storage, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize storage")
	}

	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		redisClient, err = storage.NewRedisClient(cfg.Storage)
		if err != nil {
			// the throttle counts locally without redis
			logger.WithError(err).Warn("redis unavailable, login throttle will count per instance")
			redisClient = nil
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var (
		metrics   *observability.Metrics
		recorders observability.Recorders
	)
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
		recorders = append(recorders, metrics)
	}
	if cfg.Observability.OTelEnabled {
		otelMetrics, err := observability.NewOTelMetrics()
		if err != nil {
			logger.WithError(err).Fatal("failed to create OpenTelemetry instruments")
		}
		recorders = append(recorders, otelMetrics)
	}

	authn, err := auth.NewAuthenticator(cfg.AuthenticatorConfig(), store, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to create authenticator")
	}
	toucher := storage.NewToucher(store, cfg.Storage.TouchInterval, cfg.Storage.TouchCacheSize, logger)
	authn.SetKeyToucher(toucher)

	gateway := auth.NewGateway(authn, recorders)

	policy, err := rbac.NewPolicy()
	if err != nil {
		logger.WithError(err).Fatal("failed to load authorization policy")
	}
	evaluator := rbac.NewEvaluator(store, policy, logger)
	evaluator.SetRecorder(recorders)

	var throttle *middleware.LoginThrottle
	if cfg.Throttle.Enabled {
		throttle = middleware.NewLoginThrottle(redisClient, cfg.Throttle.MaxAttempts, cfg.Throttle.Window, logger)
		if metrics != nil {
			throttle.SetRecorder(metrics)
		}
	}

	auditSinks := []audit.Logger{audit.NewLogrusLogger(logger)}
	if cfg.Audit.WebhookURL != "" {
		retry := audit.DefaultRetryConfig()
		retry.MaxAttempts = cfg.Audit.WebhookMaxAttempts
		auditSinks = append(auditSinks, audit.NewWebhookLogger(cfg.Audit.WebhookURL, cfg.Audit.WebhookSecret, retry, logger))
		logger.WithField("url", cfg.Audit.WebhookURL).Info("forwarding audit events to webhook")
	}
	auditLog := audit.NewMultiLogger(auditSinks...)
	auditLog.SetAsync(true)

	proxies, err := cfg.ClientIPResolver()
	if err != nil {
		logger.WithError(err).Fatal("invalid trusted proxy list")
	}

	health := observability.NewHealthChecker(store, redisClient, cfg.Observability.OTelServiceVersion)

	server := api.NewServer(api.Deps{
		Store:              store,
		Authenticator:      authn,
		Gateway:            gateway,
		Evaluator:          evaluator,
		Throttle:           throttle,
		Metrics:            metrics,
		Audit:              auditLog,
		Logger:             logger,
		TrustedProxies:     proxies,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	})

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	healthRouter := mux.NewRouter()
	observability.RegisterHealthRoutes(healthRouter, health)
	if metrics != nil {
		healthRouter.Handle("/metrics", observability.MetricsHandler(registry)).Methods(http.MethodGet)
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthRouter,
	}

	scheduler := jobs.NewScheduler(logger)
	var sweepRecorder jobs.SweepRecorder
	if metrics != nil {
		sweepRecorder = metrics
	}
	if err := scheduler.Add(cfg.Jobs.KeyExpirySweep, jobs.NewKeyExpirySweep(store, sweepRecorder, auditLog, logger)); err != nil {
		logger.WithError(err).Fatal("failed to schedule key expiry sweep")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("starting baynext API server")
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("starting health server")
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	if cfg.File != "" {
		watcher, err := config.NewWatcher(cfg.File, logger)
		if err != nil {
			logger.WithError(err).Warn("config file changes will not be picked up")
		} else {
			g.Go(func() error {
				return watcher.Run(gctx)
			})
		}
	}

	<-gctx.Done()
	logger.Info("shutting down")

	shutdownErr := observability.Shutdown(logger, cfg.Server.ShutdownTimeout,
		apiServer.Shutdown,
		healthServer.Shutdown,
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("server stopped with error")
	}

	toucher.Close()
	if err := auditLog.Close(); err != nil {
		logger.WithError(err).Warn("failed to flush audit log")
	}
	if redisClient != nil {
		redisClient.Close()
	}
	if err := store.Close(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
	if otelProviders != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		observability.ShutdownOTel(ctx, otelProviders, logger)
		cancel()
	}

	if shutdownErr != nil {
		logger.WithError(shutdownErr).Error("shutdown incomplete")
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
