package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/api"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/auth"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/chat"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/config"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/domain"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/observability"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/outbox"
	persistence "github.com/mxrk333/trailquest-fitnessapp-sub000/internal/persistence/postgres"
	httptransport "github.com/mxrk333/trailquest-fitnessapp-sub000/internal/transport/http"
)

func main() {
	envErr := config.LoadEnvFile(".env")
	cfg := config.Load()
	logger := observability.SetupLogging(observability.LoggingParams{
		Level:      cfg.LogLevel,
		FormatJSON: cfg.LogFormatJSON,
		FileName:   cfg.LogFile,
		Service:    "readiness-api",
	})
	if envErr != nil {
		logger.WithError(envErr).Warn("ignoring unreadable .env file")
	}

	scoring, err := config.LoadScoring(cfg.ScoringConfigPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load scoring config")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()
	if err := observability.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, "readiness-api"); err != nil {
		logger.WithError(err).Warn("pool metrics not registered")
	}

	producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
	defer func() {
		if err := producer.Close(); err != nil {
			logger.WithError(err).Warn("kafka producer close failed")
		}
	}()

	registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
	dispatcher := outbox.NewDispatcher(pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
		outbox.WithDispatcherLogger(logger.WithField("component", "outbox")),
		outbox.WithClaimTimeout(cfg.OutboxClaimTimeout))
	go dispatcher.Start(ctx)

	training := domain.NewService(persistence.NewRepository(pool),
		domain.WithScoring(scoring),
		domain.WithRecentLimit(cfg.RecentLimit),
	)
	chatService := chat.NewService(persistence.NewChatRepository(pool), nil)

	mux := http.NewServeMux()
	api.NewHandler(training, chatService, logger.WithField("component", "api")).RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	server := httptransport.NewServer(
		httptransport.DefaultServerConfig(cfg.HTTPAddress),
		httptransport.Handler(mux, logger.WithField("component", "http"), cfg.CORSOrigin, authMiddleware.Wrap),
	)

	go func() {
		logger.WithField("address", cfg.HTTPAddress).Info("readiness api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("graceful shutdown failed")
	}

	dispatcher.Wait()
	logger.Info("readiness api stopped")
}
