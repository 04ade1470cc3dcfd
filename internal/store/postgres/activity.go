package postgres

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tavolohq/tavolo/internal/domain"
)

type ActivityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

func (r *ActivityRepo) Create(ctx context.Context, a *domain.Activity) error {
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return fmt.Errorf("activityRepo.Create: marshal metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO activities (id, tenant_id, board_id, todo_id, user_id, action, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.TenantID, a.BoardID, a.TodoID, a.UserID, a.Action, metadata, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("activityRepo.Create: %w", err)
	}

	return nil
}

func (r *ActivityRepo) ListByBoard(ctx context.Context, tenantID, boardID uuid.UUID, limit int) ([]*domain.Activity, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, board_id, todo_id, user_id, action, metadata, created_at
		 FROM activities WHERE tenant_id = $1 AND board_id = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		tenantID, boardID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("activityRepo.ListByBoard: %w", err)
	}
	defer rows.Close()

	var activities []*domain.Activity
	for rows.Next() {
		var a domain.Activity
		var metadata []byte

		err = rows.Scan(&a.ID, &a.TenantID, &a.BoardID, &a.TodoID, &a.UserID, &a.Action, &metadata, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("activityRepo.ListByBoard: scan: %w", err)
		}

		if len(metadata) > 0 {
			if err = json.Unmarshal(metadata, &a.Metadata); err != nil {
				return nil, fmt.Errorf("activityRepo.ListByBoard: unmarshal metadata: %w", err)
			}
		}

		activities = append(activities, &a)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("activityRepo.ListByBoard: rows: %w", err)
	}

	return activities, nil
}
