package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"reliefchain/gateway/config"
	"reliefchain/gateway/middleware"
	"reliefchain/gateway/routes"
	"reliefchain/observability/logging"
	telemetry "reliefchain/observability/otel"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to gateway configuration")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("RELIEF_ENV"))
	slogger := logging.Setup("relief-gateway", env)
	logger := log.New(os.Stdout, "gateway ", log.LstdFlags|log.Lmsgprefix)

	if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")); endpoint != "" {
		insecure := true
		if value := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")); value != "" {
			if parsed, err := strconv.ParseBool(value); err == nil {
				insecure = parsed
			}
		}
		shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
			ServiceName: "relief-gateway",
			Environment: env,
			Endpoint:    endpoint,
			Insecure:    insecure,
			Headers:     telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
		})
		if err != nil {
			slogger.Error("failed to initialise telemetry", "error", err)
			os.Exit(1)
		}
		defer func() { _ = shutdownTelemetry(context.Background()) }()
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	nodeURL, err := url.Parse(cfg.NodeEndpoint)
	if err != nil {
		logger.Fatalf("parse node endpoint: %v", err)
	}

	obs := middleware.NewObservability(middleware.ObservabilityConfig{
		ServiceName:   cfg.Observability.ServiceName,
		MetricsPrefix: cfg.Observability.MetricsPrefix,
		LogRequests:   cfg.Observability.LogRequests,
		Enabled:       cfg.Observability.Metrics,
	}, logger)

	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		Enabled:    cfg.Auth.Enabled,
		HMACSecret: cfg.Auth.HMACSecret,
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		ScopeClaim: cfg.Auth.ScopeClaim,
		ClockSkew:  cfg.Auth.ClockSkew,
	}, logger)

	rateLimits := make(map[string]middleware.RateLimit, len(cfg.RateLimits))
	for _, entry := range cfg.RateLimits {
		if entry.ID == "" {
			continue
		}
		rateLimits[entry.ID] = middleware.RateLimit{
			RequestsPerMinute: entry.RequestsPerMinute,
			Burst:             entry.Burst,
		}
	}

	serviceRoutes := make([]routes.ServiceRoute, 0, len(cfg.Routes))
	for _, route := range cfg.Routes {
		serviceRoutes = append(serviceRoutes, routes.ServiceRoute{
			Name:           route.Name,
			Prefix:         route.Prefix,
			Target:         nodeURL,
			RequireAuth:    route.RequireAuth,
			RequiredScopes: append([]string{}, route.Scopes...),
			RateLimitKey:   route.RateLimitKey,
		})
	}

	router, err := routes.New(routes.Config{
		Routes:        serviceRoutes,
		Authenticator: auth,
		RateLimiter:   middleware.NewRateLimiter(rateLimits, logger),
		Observability: obs,
		CORS: middleware.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
		},
	})
	if err != nil {
		logger.Fatalf("configure routes: %v", err)
	}

	server := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      otelhttp.NewHandler(router, "relief-gateway"),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Printf("listening on %s, proxying %s", cfg.ListenAddress, nodeURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen and serve: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	}
}
