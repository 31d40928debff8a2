package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/domain"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/events"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/observability"
)

const restDayColumns = `rest_day_id, tenant_id, user_id, day, note, source, version, created_at`

func scanRestDay(row pgx.Row) (domain.RestDayAggregate, error) {
	var agg domain.RestDayAggregate
	err := row.Scan(&agg.ID, &agg.TenantID, &agg.UserID, &agg.Day, &agg.Note, &agg.Source, &agg.Version, &agg.CreatedAt)
	return agg, err
}

// FindRestDayByIdempotency checks if a rest day already exists for the supplied idempotency key.
func (r *Repository) FindRestDayByIdempotency(ctx context.Context, tenantID, userID, idempotencyKey string) (*domain.RestDayAggregate, error) {
	if idempotencyKey == "" {
		return nil, nil
	}

	var found *domain.RestDayAggregate
	err := inTenant(ctx, r.pool, tenantID, func(tx pgx.Tx) error {
		agg, err := scanRestDay(tx.QueryRow(ctx,
			`SELECT `+restDayColumns+` FROM rest_days WHERE tenant_id=$1 AND user_id=$2 AND idempotency_key=$3`,
			tenantID, userID, idempotencyKey))
		ok, err := scanOptional(err)
		if ok {
			found = &agg
		}
		return err
	})
	return found, err
}

// CreateRestDay persists the rest day and its rest_day.logged outbox event in one transaction.
func (r *Repository) CreateRestDay(ctx context.Context, restDay domain.RestDayAggregate, idempotencyKey string) error {
	err := inTenant(ctx, r.pool, restDay.TenantID, func(tx pgx.Tx) error {
		const insert = `INSERT INTO rest_days (rest_day_id, tenant_id, user_id, day, note, source, idempotency_key, version, created_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
		if _, err := tx.Exec(ctx, insert,
			restDay.ID,
			restDay.TenantID,
			restDay.UserID,
			restDay.Day,
			restDay.Note,
			restDay.Source,
			nullIfEmpty(idempotencyKey),
			restDay.Version,
			restDay.CreatedAt,
		); err != nil {
			return err
		}

		return insertOutbox(ctx, tx, outboxEvent{
			TenantID:      restDay.TenantID,
			AggregateType: string(domain.KindRestDay),
			AggregateID:   restDay.ID,
			UserID:        restDay.UserID,
			EventType:     events.TypeRestDayLogged,
			Payload: events.RestDayLogged{
				RestDayID: restDay.ID,
				TenantID:  restDay.TenantID,
				UserID:    restDay.UserID,
				Date:      restDay.Day,
				Source:    restDay.Source,
				Version:   restDay.Version,
			},
		})
	})
	if err != nil {
		return err
	}
	observability.RecordPersisted(string(domain.KindRestDay), restDay.CreatedAt)
	return nil
}

// RecentRestDays returns the user's latest rest days, newest first.
func (r *Repository) RecentRestDays(ctx context.Context, tenantID, userID string, limit int) ([]domain.RestDayAggregate, error) {
	results := make([]domain.RestDayAggregate, 0, limit)
	err := inTenant(ctx, r.pool, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT `+restDayColumns+` FROM rest_days WHERE tenant_id=$1 AND user_id=$2 ORDER BY day DESC, rest_day_id DESC LIMIT $3`,
			tenantID, userID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			agg, err := scanRestDay(rows)
			if err != nil {
				return err
			}
			results = append(results, agg)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
