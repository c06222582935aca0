// Package observability provides logrus logging, Prometheus metrics, OpenTelemetry
// tracing and health checks for baynext services.
//
// # Structured Logging
//
//	logger := observability.NewLogger("info", "json", os.Stdout)
//	ctx = observability.WithLogger(ctx, logger)
//	observability.FromContext(ctx).Info("token issued")
//
// FromContext adds request_id, subject and, when a span is recording,
// trace_id and span_id.
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//
// Metrics implements the decision recorders of auth.Gateway and rbac.Evaluator,
// so every authentication and authorization outcome is counted. Recorders fans
// the same decisions out to OTelMetrics when OpenTelemetry is enabled.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(store, redisClient, version)
//	observability.RegisterHealthRoutes(router, checker)
//
// The store is required for readiness; Redis only degrades it.
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "baynext-api",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability
