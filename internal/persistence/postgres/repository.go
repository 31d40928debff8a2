// Package postgres implements the training and chat repositories on Postgres with row-level
// security keyed on app.tenant_id.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/events"
)

// Repository provides Postgres-backed persistence for training records, trainer assignments and
// outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// inTenant runs fn in a transaction scoped to the tenant. The transaction commits when fn
// returns nil and rolls back otherwise.
func inTenant(ctx context.Context, pool *pgxpool.Pool, tenantID string, fn func(pgx.Tx) error) (err error) {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		return err
	}
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// scanOptional maps pgx.ErrNoRows onto a (false, nil) result.
func scanOptional(err error) (bool, error) {
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

// outboxEvent is one row destined for the outbox table.
type outboxEvent struct {
	TenantID      string
	AggregateType string
	AggregateID   string
	UserID        string
	EventType     string
	Payload       interface{}
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(outboxEvent) string
}

// Training events are keyed by tenant and user so one user's events stay ordered.
func userPartitionKey(e outboxEvent) string {
	return fmt.Sprintf("%s:%s", e.TenantID, e.UserID)
}

var eventCatalog = map[string]EventMetadata{
	events.TypeWorkoutLogged: {
		Topic:          events.TrainingTopic,
		SchemaSubject:  events.SchemaSubject(events.TypeWorkoutLogged),
		PartitionKeyFn: userPartitionKey,
	},
	events.TypeHikeLogged: {
		Topic:          events.TrainingTopic,
		SchemaSubject:  events.SchemaSubject(events.TypeHikeLogged),
		PartitionKeyFn: userPartitionKey,
	},
	events.TypeRestDayLogged: {
		Topic:          events.TrainingTopic,
		SchemaSubject:  events.SchemaSubject(events.TypeRestDayLogged),
		PartitionKeyFn: userPartitionKey,
	},
}

func insertOutbox(ctx context.Context, tx pgx.Tx, event outboxEvent) error {
	body, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[event.EventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", event.EventType)
	}

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		event.TenantID,
		event.AggregateType,
		event.AggregateID,
		event.EventType,
		meta.Topic,
		meta.SchemaSubject,
		meta.PartitionKeyFn(event),
		body,
		fmt.Sprintf("%s:%s", event.AggregateID, event.EventType),
	)
	return err
}
