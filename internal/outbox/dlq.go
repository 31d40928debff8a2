package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// DLQWriter persists failed events for investigation.
type DLQWriter struct {
	pool *pgxpool.Pool
}

// NewDLQWriter initialises a writer backed by the provided connection pool.
func NewDLQWriter(pool *pgxpool.Pool) *DLQWriter {
	return &DLQWriter{pool: pool}
}

// Write records a failed outbox message in the DLQ alongside the supplied reason.
func (w *DLQWriter) Write(ctx context.Context, msg Message, reason string) error {
	_, err := w.pool.Exec(ctx,
		`INSERT INTO outbox_dlq (tenant_id, event_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, schema_subject, partition_key, next_retry_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, NOW())`,
		msg.TenantID, msg.EventID, msg.EventType, msg.Topic, msg.Payload, reason, msg.AggregateType, msg.AggregateID, msg.SchemaSubject, msg.PartitionKey,
	)
	return err
}

// DLQReplayer re-queues failed events into the outbox with exponential backoff and quarantines
// entries that exhaust their retries.
type DLQReplayer struct {
	pool       *pgxpool.Pool
	maxRetries int
	baseDelay  time.Duration
	logger     logrus.FieldLogger
}

// NewDLQReplayer constructs a DLQReplayer. Non-positive settings fall back to 5 retries and a
// one minute base delay.
func NewDLQReplayer(pool *pgxpool.Pool, maxRetries int, baseDelay time.Duration, logger logrus.FieldLogger) *DLQReplayer {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	if baseDelay <= 0 {
		baseDelay = time.Minute
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DLQReplayer{pool: pool, maxRetries: maxRetries, baseDelay: baseDelay, logger: logger}
}

// RunOnce processes one batch of due DLQ entries and returns how many were re-queued.
func (m *DLQReplayer) RunOnce(ctx context.Context, batchSize int) (int, error) {
	const query = `SELECT dlq_id, tenant_id, event_id, event_type, topic, payload, aggregate_type, aggregate_id, schema_subject, partition_key, retry_count
        FROM outbox_dlq
        WHERE quarantined_at IS NULL AND (next_retry_at IS NULL OR next_retry_at <= NOW())
        ORDER BY created_at
        LIMIT $1`

	rows, err := m.pool.Query(ctx, query, batchSize)
	if err != nil {
		return 0, err
	}
	entries := make([]dlqEntry, 0, batchSize)
	for rows.Next() {
		var e dlqEntry
		if scanErr := rows.Scan(&e.ID, &e.TenantID, &e.EventID, &e.EventType, &e.Topic, &e.Payload, &e.AggregateType, &e.AggregateID, &e.SchemaSubject, &e.PartitionKey, &e.RetryCount); scanErr != nil {
			err = multierr.Append(err, scanErr)
			continue
		}
		entries = append(entries, e)
	}
	rows.Close()
	err = multierr.Append(err, rows.Err())

	requeued := 0
	for _, entry := range entries {
		ok, handleErr := m.handleEntry(ctx, entry)
		if handleErr != nil {
			err = multierr.Append(err, fmt.Errorf("dlq entry %d: %w", entry.ID, handleErr))
			continue
		}
		if ok {
			requeued++
		}
	}
	m.updateBacklog(ctx)
	return requeued, err
}

// handleEntry re-queues or quarantines one entry. The boolean reports a successful re-queue.
func (m *DLQReplayer) handleEntry(ctx context.Context, entry dlqEntry) (requeued bool, err error) {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	log := m.logger.WithFields(logrus.Fields{"dlq_id": entry.ID, "event_type": entry.EventType, "retry_count": entry.RetryCount})

	if entry.RetryCount >= m.maxRetries {
		if _, err = tx.Exec(ctx, `UPDATE outbox_dlq SET quarantined_at = NOW(), quarantine_reason = $1 WHERE dlq_id = $2`, "retry limit reached", entry.ID); err != nil {
			return false, err
		}
		dlqQuarantinedCounter.WithLabelValues(entry.Topic, entry.EventType).Inc()
		log.Warn("dlq entry quarantined")
		return false, tx.Commit(ctx)
	}

	if _, err = tx.Exec(ctx, "SAVEPOINT requeue"); err != nil {
		return false, err
	}
	if requeueErr := requeueOutbox(ctx, tx, entry); requeueErr != nil {
		if _, err = tx.Exec(ctx, "ROLLBACK TO SAVEPOINT requeue"); err != nil {
			return false, err
		}
		delay := backoffDelay(m.baseDelay, entry.RetryCount+1)
		if _, err = tx.Exec(ctx,
			`UPDATE outbox_dlq
                SET retry_count = retry_count + 1,
                    last_attempt_at = NOW(),
                    next_retry_at = NOW() + $1::interval,
                    reason = $2
              WHERE dlq_id = $3`,
			delay, requeueErr.Error(), entry.ID,
		); err != nil {
			return false, err
		}
		dlqRetryCounter.WithLabelValues(entry.Topic, entry.EventType).Inc()
		log.WithError(requeueErr).WithField("delay", delay).Info("dlq retry scheduled")
		return false, tx.Commit(ctx)
	}

	if _, err = tx.Exec(ctx, `DELETE FROM outbox_dlq WHERE dlq_id = $1`, entry.ID); err != nil {
		return false, err
	}
	if err = tx.Commit(ctx); err != nil {
		return false, err
	}
	dlqRequeuedCounter.WithLabelValues(entry.Topic, entry.EventType).Inc()
	return true, nil
}

func (m *DLQReplayer) updateBacklog(ctx context.Context) {
	var count int
	if err := m.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NULL`).Scan(&count); err != nil {
		m.logger.WithError(err).Debug("dlq backlog query failed")
		return
	}
	dlqBacklogGauge.Set(float64(count))
}

// backoffDelay doubles base per attempt, capped at one hour.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 30 {
		return time.Hour
	}
	delay := time.Duration(1<<uint(attempt-1)) * base
	if delay > time.Hour || delay <= 0 {
		delay = time.Hour
	}
	return delay
}

// requeueOutbox reinserts the payload into the primary outbox table for replay.
func requeueOutbox(ctx context.Context, tx pgx.Tx, entry dlqEntry) error {
	if entry.SchemaSubject == "" {
		return fmt.Errorf("missing schema_subject for dlq entry %d", entry.ID)
	}

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err := tx.Exec(ctx, stmt,
		entry.TenantID,
		entry.AggregateType,
		entry.AggregateID,
		entry.EventType,
		entry.Topic,
		entry.SchemaSubject,
		entry.PartitionKey,
		entry.Payload,
		fmt.Sprintf("%s:%s:replay:%d", entry.AggregateID, entry.EventType, entry.ID),
	)
	return err
}

// dlqEntry represents an outbox_dlq row selected for processing.
type dlqEntry struct {
	ID            int64
	TenantID      string
	EventID       int64
	EventType     string
	Topic         string
	Payload       []byte
	AggregateType string
	AggregateID   string
	SchemaSubject string
	PartitionKey  string
	RetryCount    int
}
