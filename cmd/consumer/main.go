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
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/config"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/consumer"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/domain"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/observability"
	persistence "github.com/mxrk333/trailquest-fitnessapp-sub000/internal/persistence/postgres"
)

func main() {
	envErr := config.LoadEnvFile(".env")
	cfg := config.Load()
	logger := observability.SetupLogging(observability.LoggingParams{
		Level:      cfg.LogLevel,
		FormatJSON: cfg.LogFormatJSON,
		FileName:   cfg.LogFile,
		Service:    "readiness-consumer",
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
	if err := observability.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, "readiness-consumer"); err != nil {
		logger.WithError(err).Warn("pool metrics not registered")
	}

	service := domain.NewService(persistence.NewRepository(pool),
		domain.WithScoring(scoring),
		domain.WithRecentLimit(cfg.RecentLimit),
	)
	handler := consumer.NewReadinessHandler(service, consumer.NewPostgresEventLog(pool), logger.WithField("component", "readiness"))

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.WithField("address", cfg.MetricsAddress).Info("consumer metrics listening")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server error")
		}
	}()

	group, groupCtx := errgroup.WithContext(ctx)
	for _, topic := range cfg.ConsumerTopics {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:         cfg.KafkaBrokers,
			GroupID:         cfg.ConsumerGroupID,
			Topic:           topic,
			MinBytes:        1e3,
			MaxBytes:        10e6,
			CommitInterval:  time.Second,
			RetentionTime:   24 * time.Hour,
			ReadLagInterval: -1,
		})
		log := logger.WithFields(logrus.Fields{"topic": topic, "group": cfg.ConsumerGroupID})
		proc := consumer.NewProcessor(reader, handler, consumer.WithLogger(log))

		group.Go(func() error {
			defer func() {
				if err := reader.Close(); err != nil {
					log.WithError(err).Warn("reader close failed")
				}
			}()
			log.Info("consumer started")
			if err := proc.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		logger.WithError(err).Error("consumer stopped with error")
	}
	logger.Info("consumer shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("metrics server shutdown error")
	}
}
