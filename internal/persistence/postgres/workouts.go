package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/domain"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/events"
	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/observability"
)

const workoutColumns = `workout_id, tenant_id, user_id, performed_at, title, exercises, source, version, created_at`

func scanWorkout(row pgx.Row) (domain.WorkoutAggregate, error) {
	var (
		agg       domain.WorkoutAggregate
		exercises []byte
	)
	if err := row.Scan(&agg.ID, &agg.TenantID, &agg.UserID, &agg.PerformedAt, &agg.Title, &exercises, &agg.Source, &agg.Version, &agg.CreatedAt); err != nil {
		return agg, err
	}
	if err := json.Unmarshal(exercises, &agg.Exercises); err != nil {
		return agg, fmt.Errorf("decode exercises of workout %s: %w", agg.ID, err)
	}
	return agg, nil
}

// FindWorkoutByIdempotency checks if a workout already exists for the supplied idempotency key.
func (r *Repository) FindWorkoutByIdempotency(ctx context.Context, tenantID, userID, idempotencyKey string) (*domain.WorkoutAggregate, error) {
	if idempotencyKey == "" {
		return nil, nil
	}

	var found *domain.WorkoutAggregate
	err := inTenant(ctx, r.pool, tenantID, func(tx pgx.Tx) error {
		agg, err := scanWorkout(tx.QueryRow(ctx,
			`SELECT `+workoutColumns+` FROM workouts WHERE tenant_id=$1 AND user_id=$2 AND idempotency_key=$3`,
			tenantID, userID, idempotencyKey))
		ok, err := scanOptional(err)
		if ok {
			found = &agg
		}
		return err
	})
	return found, err
}

// CreateWorkout persists the workout and its workout.logged outbox event in one transaction.
func (r *Repository) CreateWorkout(ctx context.Context, workout domain.WorkoutAggregate, idempotencyKey string) error {
	exercises, err := json.Marshal(workout.Exercises)
	if err != nil {
		return err
	}

	err = inTenant(ctx, r.pool, workout.TenantID, func(tx pgx.Tx) error {
		const insert = `INSERT INTO workouts (workout_id, tenant_id, user_id, performed_at, title, exercises, source, idempotency_key, version, created_at)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
		if _, err := tx.Exec(ctx, insert,
			workout.ID,
			workout.TenantID,
			workout.UserID,
			workout.PerformedAt,
			workout.Title,
			exercises,
			workout.Source,
			nullIfEmpty(idempotencyKey),
			workout.Version,
			workout.CreatedAt,
		); err != nil {
			return err
		}

		return insertOutbox(ctx, tx, outboxEvent{
			TenantID:      workout.TenantID,
			AggregateType: string(domain.KindWorkout),
			AggregateID:   workout.ID,
			UserID:        workout.UserID,
			EventType:     events.TypeWorkoutLogged,
			Payload: events.WorkoutLogged{
				WorkoutID:     workout.ID,
				TenantID:      workout.TenantID,
				UserID:        workout.UserID,
				PerformedAt:   workout.PerformedAt,
				ExerciseCount: len(workout.Exercises),
				CompletedSets: workout.CompletedSets(),
				Muscles:       workout.Muscles(),
				Source:        workout.Source,
				Version:       workout.Version,
			},
		})
	})
	if err != nil {
		return err
	}
	observability.RecordPersisted(string(domain.KindWorkout), workout.CreatedAt)
	return nil
}

// RecentWorkouts returns the user's latest workouts, newest first.
func (r *Repository) RecentWorkouts(ctx context.Context, tenantID, userID string, limit int) ([]domain.WorkoutAggregate, error) {
	workouts, _, err := r.ListWorkouts(ctx, tenantID, userID, nil, limit)
	return workouts, err
}

// ListWorkouts returns workouts for a user ordered by time, newest first.
func (r *Repository) ListWorkouts(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.WorkoutAggregate, *domain.Cursor, error) {
	args := []interface{}{tenantID, userID, limit}
	query := `SELECT ` + workoutColumns + ` FROM workouts WHERE tenant_id=$1 AND user_id=$2`

	if cursor != nil {
		query += ` AND (performed_at, workout_id) < ($4, $5)`
		args = append(args, cursor.At, cursor.ID)
	}

	query += ` ORDER BY performed_at DESC, workout_id DESC LIMIT $3`

	results := make([]domain.WorkoutAggregate, 0, limit)
	err := inTenant(ctx, r.pool, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			agg, err := scanWorkout(rows)
			if err != nil {
				return err
			}
			results = append(results, agg)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, nil, err
	}

	var nextCursor *domain.Cursor
	if limit > 0 && len(results) == limit {
		last := results[len(results)-1]
		nextCursor = &domain.Cursor{At: last.PerformedAt, ID: last.ID}
	}
	return results, nextCursor, nil
}
