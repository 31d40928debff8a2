package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/domain"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/events"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/observability"
)

// ReadinessScorer recomputes a user's readiness.
type ReadinessScorer interface {
	Readiness(ctx context.Context, tenantID, userID string) (*domain.ReadinessReport, error)
}

// EventLog records consumed events for auditing.
type EventLog interface {
	Append(ctx context.Context, msg Message, userID string, readiness int) error
}

// ReadinessHandler recomputes readiness whenever a training event arrives and appends the event,
// together with the fresh score, to the event log.
type ReadinessHandler struct {
	scorer ReadinessScorer
	log    EventLog
	logger logrus.FieldLogger
}

// NewReadinessHandler constructs a ReadinessHandler.
func NewReadinessHandler(scorer ReadinessScorer, log EventLog, logger logrus.FieldLogger) *ReadinessHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ReadinessHandler{scorer: scorer, log: log, logger: logger}
}

var trainingEventTypes = map[string]struct{}{
	events.TypeWorkoutLogged: {},
	events.TypeHikeLogged:    {},
	events.TypeRestDayLogged: {},
}

// Handle implements Handler.
func (h *ReadinessHandler) Handle(ctx context.Context, msg Message) error {
	if _, ok := trainingEventTypes[msg.EventType]; !ok {
		return fmt.Errorf("%w: unsupported event type %q", ErrSkip, msg.EventType)
	}

	var envelope events.Envelope
	if err := json.Unmarshal(msg.Payload, &envelope); err != nil {
		return fmt.Errorf("%w: decode envelope: %v", ErrSkip, err)
	}
	if envelope.UserID == "" {
		return fmt.Errorf("%w: payload has no user_id", ErrSkip)
	}
	tenantID := msg.TenantID
	if tenantID == "" {
		tenantID = envelope.TenantID
	}

	report, err := h.scorer.Readiness(ctx, tenantID, envelope.UserID)
	if err != nil {
		return fmt.Errorf("recompute readiness: %w", err)
	}
	observability.ObserveReadiness("consumer", report.Score)

	if err := h.log.Append(ctx, msg, envelope.UserID, report.Score); err != nil {
		return fmt.Errorf("append event log: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"tenant_id":      tenantID,
		"user_id":        envelope.UserID,
		"event_type":     msg.EventType,
		"readiness":      report.Score,
		"recommendation": report.Recommendation,
	}).Debug("readiness recomputed")
	return nil
}

// PostgresEventLog writes consumed events into the training_event_log table.
type PostgresEventLog struct {
	pool *pgxpool.Pool
}

// NewPostgresEventLog constructs an event log backed by the provided pool.
func NewPostgresEventLog(pool *pgxpool.Pool) *PostgresEventLog {
	return &PostgresEventLog{pool: pool}
}

// Append stores the event. Redelivered offsets are ignored.
func (l *PostgresEventLog) Append(ctx context.Context, msg Message, userID string, readiness int) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO training_event_log (tenant_id, topic, partition, kafka_offset, event_type, user_id, payload, readiness, received_at)
         VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())
         ON CONFLICT (topic, partition, kafka_offset) DO NOTHING`,
		msg.TenantID,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		msg.EventType,
		userID,
		msg.Payload,
		readiness,
	)
	return err
}
