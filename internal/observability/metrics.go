// Package observability holds process-wide logging setup and Prometheus collectors.
package observability

import (
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	recordPersistGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "readiness_service",
		Subsystem: "persistence",
		Name:      "last_record_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent training record persisted to Postgres, by kind.",
	}, []string{"kind"})

	readinessScores = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "readiness_service",
		Subsystem: "model",
		Name:      "readiness_score",
		Help:      "Distribution of computed readiness scores.",
		Buckets:   prometheus.LinearBuckets(0, 10, 11),
	}, []string{"source"})

	scoringDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "readiness_service",
		Subsystem: "model",
		Name:      "scoring_duration_seconds",
		Help:      "Time spent fetching records and computing a score, by report type.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"report"})
)

func init() {
	prometheus.MustRegister(recordPersistGauge, readinessScores, scoringDuration)
}

// RecordPersisted updates the persistence watermark gauge for a record kind.
func RecordPersisted(kind string, ts time.Time) {
	if ts.IsZero() {
		return
	}
	recordPersistGauge.WithLabelValues(kind).Set(float64(ts.Unix()))
}

// ObserveReadiness records a computed readiness score. Source distinguishes API reads from
// scores recomputed by the event consumer.
func ObserveReadiness(source string, score int) {
	readinessScores.WithLabelValues(source).Observe(float64(score))
}

// ObserveScoring records how long a report took to build.
func ObserveScoring(report string, started time.Time) {
	scoringDuration.WithLabelValues(report).Observe(time.Since(started).Seconds())
}

// PoolStater is satisfied by *pgxpool.Pool.
type PoolStater interface {
	Stat() *pgxpool.Stat
}

// RegisterPoolMetrics exports connection pool statistics labelled with the service name.
func RegisterPoolMetrics(reg prometheus.Registerer, pool PoolStater, service string) error {
	return reg.Register(pgxpoolprometheus.NewCollector(pool, map[string]string{"service": service}))
}
