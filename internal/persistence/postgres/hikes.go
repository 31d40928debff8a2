package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/domain"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/events"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/observability"
)

const hikeColumns = `hike_id, tenant_id, user_id, started_at, trail, duration_min, distance_km, elevation_m, active_muscles, source, version, created_at`

func scanHike(row pgx.Row) (domain.HikeAggregate, error) {
	var agg domain.HikeAggregate
	err := row.Scan(&agg.ID, &agg.TenantID, &agg.UserID, &agg.StartedAt, &agg.Trail, &agg.DurationMin, &agg.DistanceKm, &agg.ElevationM, &agg.ActiveMuscles, &agg.Source, &agg.Version, &agg.CreatedAt)
	return agg, err
}

// FindHikeByIdempotency checks if a hike already exists for the supplied idempotency key.
func (r *Repository) FindHikeByIdempotency(ctx context.Context, tenantID, userID, idempotencyKey string) (*domain.HikeAggregate, error) {
	if idempotencyKey == "" {
		return nil, nil
	}

	var found *domain.HikeAggregate
	err := inTenant(ctx, r.pool, tenantID, func(tx pgx.Tx) error {
		agg, err := scanHike(tx.QueryRow(ctx,
			`SELECT `+hikeColumns+` FROM hikes WHERE tenant_id=$1 AND user_id=$2 AND idempotency_key=$3`,
			tenantID, userID, idempotencyKey))
		ok, err := scanOptional(err)
		if ok {
			found = &agg
		}
		return err
	})
	return found, err
}

// CreateHike persists the hike and its hike.logged outbox event in one transaction.
func (r *Repository) CreateHike(ctx context.Context, hike domain.HikeAggregate, idempotencyKey string) error {
	muscles := hike.ActiveMuscles
	if muscles == nil {
		muscles = []string{}
	}

	err := inTenant(ctx, r.pool, hike.TenantID, func(tx pgx.Tx) error {
		const insert = `INSERT INTO hikes (hike_id, tenant_id, user_id, started_at, trail, duration_min, distance_km, elevation_m, active_muscles, source, idempotency_key, version, created_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
		if _, err := tx.Exec(ctx, insert,
			hike.ID,
			hike.TenantID,
			hike.UserID,
			hike.StartedAt,
			hike.Trail,
			hike.DurationMin,
			hike.DistanceKm,
			hike.ElevationM,
			muscles,
			hike.Source,
			nullIfEmpty(idempotencyKey),
			hike.Version,
			hike.CreatedAt,
		); err != nil {
			return err
		}

		return insertOutbox(ctx, tx, outboxEvent{
			TenantID:      hike.TenantID,
			AggregateType: string(domain.KindHike),
			AggregateID:   hike.ID,
			UserID:        hike.UserID,
			EventType:     events.TypeHikeLogged,
			Payload: events.HikeLogged{
				HikeID:        hike.ID,
				TenantID:      hike.TenantID,
				UserID:        hike.UserID,
				StartedAt:     hike.StartedAt,
				DurationMin:   hike.DurationMin,
				DistanceKm:    hike.DistanceKm,
				ActiveMuscles: muscles,
				Source:        hike.Source,
				Version:       hike.Version,
			},
		})
	})
	if err != nil {
		return err
	}
	observability.RecordPersisted(string(domain.KindHike), hike.CreatedAt)
	return nil
}

// RecentHikes returns the user's latest hikes, newest first.
func (r *Repository) RecentHikes(ctx context.Context, tenantID, userID string, limit int) ([]domain.HikeAggregate, error) {
	results := make([]domain.HikeAggregate, 0, limit)
	err := inTenant(ctx, r.pool, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT `+hikeColumns+` FROM hikes WHERE tenant_id=$1 AND user_id=$2 ORDER BY started_at DESC, hike_id DESC LIMIT $3`,
			tenantID, userID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			agg, err := scanHike(rows)
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
