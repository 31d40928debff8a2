package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/domain"
)

// AssignClient links a client to a trainer. Re-assigning refreshes the display name only.
func (r *Repository) AssignClient(ctx context.Context, tenantID, trainerID string, client domain.Client) error {
	return inTenant(ctx, r.pool, tenantID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO trainer_clients (tenant_id, trainer_id, client_id, display_name, assigned_at)
             VALUES ($1,$2,$3,$4,$5)
             ON CONFLICT (tenant_id, trainer_id, client_id) DO UPDATE SET display_name = EXCLUDED.display_name`,
			tenantID, trainerID, client.ID, client.DisplayName, client.AssignedAt)
		return err
	})
}

// ListClients returns every client of a trainer in assignment order.
func (r *Repository) ListClients(ctx context.Context, tenantID, trainerID string) ([]domain.Client, error) {
	clients := make([]domain.Client, 0)
	err := inTenant(ctx, r.pool, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT client_id, display_name, assigned_at FROM trainer_clients
             WHERE tenant_id=$1 AND trainer_id=$2 ORDER BY assigned_at, client_id`,
			tenantID, trainerID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c domain.Client
			if err := rows.Scan(&c.ID, &c.DisplayName, &c.AssignedAt); err != nil {
				return err
			}
			clients = append(clients, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return clients, nil
}
