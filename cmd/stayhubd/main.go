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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"stayhub/internal/availability"
	"stayhub/internal/booking"
	"stayhub/internal/config"
	"stayhub/internal/events"
	"stayhub/internal/hotelapi"
	"stayhub/internal/metrics"
	"stayhub/internal/server"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("STAYHUB_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Auth.JWTSecret == "" {
		logger.Fatal().Msg("set auth.jwt_secret in config")
	}

	client := hotelapi.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.APIKey, logger)
	if cfg.Upstream.RateLimitRPS > 0 {
		client.UseRateLimit(cfg.Upstream.RateLimitRPS, cfg.Upstream.RateLimitBurst)
	}
	if cfg.Redis.Address != "" && cfg.Upstream.CacheTTLSeconds > 0 {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}

	resolver := availability.NewResolver(client, logger)
	orch := booking.NewOrchestrator(resolver, client, booking.Config{
		SessionTimeout:             cfg.SessionTimeout(),
		RequireSettledAvailability: cfg.Booking.RequireSettledAvailability,
	}, logger)
	bus := events.NewBus()
	bus.Subscribe(events.TypeFlowCompleted, func(e events.Event) error {
		logger.Info().RawJSON("completion", e.Payload).Msg("booking paid and confirmed")
		return nil
	})
	orch.UseEventBus(bus)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()
	if cfg.Monitoring.PrometheusEnabled {
		port := cfg.Monitoring.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go startMetricsServer(ctx, port, &logger)
	}

	go sessionCleanupLoop(ctx, orch.Store(), &logger)

	srv := server.New(orch, resolver, client, cfg.Auth.JWTSecret, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Routes(cfg.Server.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info().Int("port", cfg.Server.Port).Msg("stayhub gateway started")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("http server error")
	}
	logger.Info().Msg("stayhub gateway stopped")
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Int("port", port).Msg("metrics server started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func sessionCleanupLoop(ctx context.Context, store *booking.SessionStore, logger *zerolog.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := store.Cleanup(); removed > 0 {
				logger.Info().Int("removed", removed).Msg("expired booking sessions cleaned up")
			}
		}
	}
}
