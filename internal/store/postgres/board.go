package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tavolohq/tavolo/internal/domain"
)

type BoardRepo struct {
	pool *pgxpool.Pool
}

func NewBoardRepo(pool *pgxpool.Pool) *BoardRepo {
	return &BoardRepo{pool: pool}
}

func (r *BoardRepo) Create(ctx context.Context, b *domain.Board) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO boards (id, tenant_id, name, description, created_by_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		b.ID, b.TenantID, b.Name, b.Description, b.CreatedByID,
		b.CreatedAt, b.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("boardRepo.Create: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("boardRepo.Create: %w", err)
	}

	return nil
}

func (r *BoardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	var b domain.Board

	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, name, description, created_by_id, created_at, updated_at
		 FROM boards WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.TenantID, &b.Name, &b.Description, &b.CreatedByID, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("boardRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("boardRepo.GetByID: %w", err)
	}

	return &b, nil
}

func (r *BoardRepo) GetByIDAndTenant(ctx context.Context, tenantID, id uuid.UUID) (*domain.Board, error) {
	var b domain.Board

	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, name, description, created_by_id, created_at, updated_at
		 FROM boards WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	).Scan(&b.ID, &b.TenantID, &b.Name, &b.Description, &b.CreatedByID, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("boardRepo.GetByIDAndTenant: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("boardRepo.GetByIDAndTenant: %w", err)
	}

	return &b, nil
}

func (r *BoardRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.Board, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, name, description, created_by_id, created_at, updated_at
		 FROM boards WHERE tenant_id = $1
		 ORDER BY created_at
		 LIMIT 500`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("boardRepo.ListByTenant: %w", err)
	}
	defer rows.Close()

	var boards []*domain.Board
	for rows.Next() {
		var b domain.Board

		err = rows.Scan(&b.ID, &b.TenantID, &b.Name, &b.Description, &b.CreatedByID, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("boardRepo.ListByTenant: scan: %w", err)
		}

		boards = append(boards, &b)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("boardRepo.ListByTenant: rows: %w", err)
	}

	return boards, nil
}

func (r *BoardRepo) ExistsByName(ctx context.Context, tenantID uuid.UUID, name string) (bool, error) {
	var exists bool

	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM boards WHERE tenant_id = $1 AND lower(name) = lower($2))`,
		tenantID, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("boardRepo.ExistsByName: %w", err)
	}

	return exists, nil
}

func (r *BoardRepo) Update(ctx context.Context, b *domain.Board) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE boards SET name = $1, description = $2, updated_at = now()
		 WHERE tenant_id = $3 AND id = $4`,
		b.Name, b.Description, b.TenantID, b.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("boardRepo.Update: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("boardRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("boardRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *BoardRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM boards WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	if err != nil {
		return fmt.Errorf("boardRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("boardRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}
