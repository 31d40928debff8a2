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
	"github.com/sirupsen/logrus"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/config"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/observability"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/outbox"
)

func main() {
	envErr := config.LoadEnvFile(".env")
	cfg := config.Load()
	logger := observability.SetupLogging(observability.LoggingParams{
		Level:      cfg.LogLevel,
		FormatJSON: cfg.LogFormatJSON,
		FileName:   cfg.LogFile,
		Service:    "readiness-dlq",
	})
	if envErr != nil {
		logger.WithError(envErr).Warn("ignoring unreadable .env file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()
	if err := observability.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, "readiness-dlq"); err != nil {
		logger.WithError(err).Warn("pool metrics not registered")
	}

	replayer := outbox.NewDLQReplayer(pool, cfg.DLQMaxRetries, cfg.DLQBaseDelay, logger.WithField("component", "dlq"))

	metricsSrv := &http.Server{Addr: cfg.MetricsAddress, Handler: promhttp.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.WithField("address", cfg.MetricsAddress).Info("dlq manager metrics listening")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server error")
		}
	}()

	ticker := time.NewTicker(cfg.DLQPollInterval)
	defer ticker.Stop()

	logger.WithFields(logrus.Fields{
		"interval":    cfg.DLQPollInterval,
		"max_retries": cfg.DLQMaxRetries,
		"batch_size":  cfg.DLQBatchSize,
	}).Info("dlq manager started")

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			requeued, err := replayer.RunOnce(ctx, cfg.DLQBatchSize)
			if err != nil {
				logger.WithError(err).Warn("dlq pass finished with errors")
			}
			if requeued > 0 {
				logger.WithField("requeued", requeued).Info("dlq entries requeued")
			}
		}
	}

	logger.Info("dlq manager shutdown")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("metrics server shutdown error")
	}
}
