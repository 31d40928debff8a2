package observability

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel(" warning "))
	assert.Equal(t, logrus.InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, logrus.InfoLevel, ParseLevel(""))
}

func TestSetupLoggingTagsService(t *testing.T) {
	original := logrus.StandardLogger().Out
	originalLevel := logrus.GetLevel()
	originalFormatter := logrus.StandardLogger().Formatter
	t.Cleanup(func() {
		logrus.SetOutput(original)
		logrus.SetLevel(originalLevel)
		logrus.SetFormatter(originalFormatter)
	})

	entry := SetupLogging(LoggingParams{
		Level:      "debug",
		FormatJSON: true,
		FileName:   filepath.Join(t.TempDir(), "readiness"),
		Service:    "readiness-api",
	})

	require.NotNil(t, entry)
	assert.Equal(t, "readiness-api", entry.Data["service"])
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)
}

func TestRecordPersistedIgnoresZeroTime(t *testing.T) {
	RecordPersisted("hike", time.Time{})
	assert.Equal(t, 0.0, testutil.ToFloat64(recordPersistGauge.WithLabelValues("hike")))

	ts := time.Date(2025, time.October, 27, 20, 0, 0, 0, time.UTC)
	RecordPersisted("workout", ts)
	assert.Equal(t, float64(ts.Unix()), testutil.ToFloat64(recordPersistGauge.WithLabelValues("workout")))
}

func TestObserveReadinessAndScoring(t *testing.T) {
	ObserveReadiness("api", 97)
	ObserveScoring("readiness", time.Now())
	assert.Equal(t, 1, testutil.CollectAndCount(readinessScores))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(scoringDuration), 1)
}

type fakePool struct{}

func (fakePool) Stat() *pgxpool.Stat { return &pgxpool.Stat{} }

func TestRegisterPoolMetricsRejectsDuplicates(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterPoolMetrics(reg, fakePool{}, "readiness-api"))
	require.Error(t, RegisterPoolMetrics(reg, fakePool{}, "readiness-api"))
}
