//go:build integration

package outbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/events"
)

func TestDispatcherPublishesMessages(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	seedOutbox(t, ctx, pool, events.TypeWorkoutLogged)

	producer := &stubProducer{}
	dispatcher := NewDispatcher(pool, producer, &stubRegistry{id: 42}, 10*time.Millisecond, 5)

	before := testutil.ToFloat64(deliveredCounter)
	require.NoError(t, dispatcher.processBatch(ctx))

	require.Len(t, producer.writes, 1)
	require.Equal(t, events.TrainingTopic, producer.writes[0].topic)
	require.InDelta(t, before+1, testutil.ToFloat64(deliveredCounter), 0.0001)

	var published int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NOT NULL`).Scan(&published))
	require.Equal(t, 1, published)
}

func TestDispatcherSkipsRowsClaimedByAnotherReplica(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	seedOutbox(t, ctx, pool, events.TypeWorkoutLogged)

	first := NewDispatcher(pool, &stubProducer{}, &stubRegistry{id: 42}, 10*time.Millisecond, 5, WithClaimTimeout(time.Minute))
	claimed, err := first.fetchAndClaim(ctx)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	producer := &stubProducer{}
	second := NewDispatcher(pool, producer, &stubRegistry{id: 42}, 10*time.Millisecond, 5, WithClaimTimeout(time.Minute))
	require.NoError(t, second.processBatch(ctx))
	require.Empty(t, producer.writes)

	_, err = pool.Exec(ctx, `UPDATE outbox SET claimed_at = NOW() - interval '2 minutes'`)
	require.NoError(t, err)
	require.NoError(t, second.processBatch(ctx))
	require.Len(t, producer.writes, 1)
}

func TestDispatcherRoutesFailuresThroughDLQ(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)
	seedOutbox(t, ctx, pool, events.TypeRestDayLogged)

	dispatcher := NewDispatcher(pool, &stubProducer{err: errors.New("kafka write failed")}, &stubRegistry{id: 7}, 10*time.Millisecond, 5)
	require.NoError(t, dispatcher.processBatch(ctx))

	var reason string
	require.NoError(t, pool.QueryRow(ctx, `SELECT reason FROM outbox_dlq`).Scan(&reason))
	require.Contains(t, reason, "kafka write failed")

	replayer := NewDLQReplayer(pool, 3, time.Second, nil)
	requeued, err := replayer.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, requeued)

	var pending int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&pending))
	require.Equal(t, 1, pending)
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq`).Scan(&pending))
	require.Zero(t, pending)
}

func seedOutbox(t *testing.T, ctx context.Context, pool *pgxpool.Pool, eventType string) {
	t.Helper()
	aggregateID := uuid.NewString()
	_, err := pool.Exec(ctx,
		`INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		"tenant-1", "workout", aggregateID, eventType, events.TrainingTopic, events.SchemaSubject(eventType),
		"tenant-1:user-1", []byte(`{"tenant_id":"tenant-1","user_id":"user-1"}`), aggregateID+":"+eventType)
	require.NoError(t, err)
}

func setupPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()
	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("trailquest"),
		postgrescontainer.WithUsername("trailquest"),
		postgrescontainer.WithPassword("trailquest"),
		postgrescontainer.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	contents, err := os.ReadFile(filepath.Join(filepath.Dir(file), "../../db/postgres/migrations/0001_init.up.sql"))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(contents))
	require.NoError(t, err)
	return pool
}
