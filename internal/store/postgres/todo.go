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

type TodoRepo struct {
	pool *pgxpool.Pool
}

func NewTodoRepo(pool *pgxpool.Pool) *TodoRepo {
	return &TodoRepo{pool: pool}
}

func (r *TodoRepo) Create(ctx context.Context, t *domain.Todo) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO todos (id, tenant_id, board_id, title, description, status, assignee_id, created_by_id, position, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.TenantID, t.BoardID, t.Title, t.Description,
		t.Status, t.AssigneeID, t.CreatedByID, t.Position,
		t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("todoRepo.Create: %w", err)
	}

	return nil
}

func (r *TodoRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Todo, error) {
	var t domain.Todo

	err := r.pool.QueryRow(ctx,
		`SELECT id, tenant_id, board_id, title, description, status, assignee_id,
		        created_by_id, position, created_at, updated_at
		 FROM todos WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	).Scan(
		&t.ID, &t.TenantID, &t.BoardID, &t.Title, &t.Description,
		&t.Status, &t.AssigneeID, &t.CreatedByID, &t.Position,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("todoRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("todoRepo.GetByID: %w", err)
	}

	return &t, nil
}

func (r *TodoRepo) ListByBoard(ctx context.Context, tenantID, boardID uuid.UUID) ([]*domain.Todo, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, tenant_id, board_id, title, description, status, assignee_id,
		        created_by_id, position, created_at, updated_at
		 FROM todos WHERE tenant_id = $1 AND board_id = $2
		 ORDER BY position
		 LIMIT 1000`,
		tenantID, boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("todoRepo.ListByBoard: %w", err)
	}
	defer rows.Close()

	var todos []*domain.Todo
	for rows.Next() {
		var t domain.Todo

		err = rows.Scan(
			&t.ID, &t.TenantID, &t.BoardID, &t.Title, &t.Description,
			&t.Status, &t.AssigneeID, &t.CreatedByID, &t.Position,
			&t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("todoRepo.ListByBoard: scan: %w", err)
		}

		todos = append(todos, &t)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("todoRepo.ListByBoard: rows: %w", err)
	}

	return todos, nil
}

func (r *TodoRepo) CountByBoard(ctx context.Context, tenantID, boardID uuid.UUID) (int, error) {
	var count int

	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM todos WHERE tenant_id = $1 AND board_id = $2`,
		tenantID, boardID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("todoRepo.CountByBoard: %w", err)
	}

	return count, nil
}

func (r *TodoRepo) NextPosition(ctx context.Context, tenantID, boardID uuid.UUID) (int, error) {
	var pos int

	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0)
		 FROM todos WHERE tenant_id = $1 AND board_id = $2`,
		tenantID, boardID,
	).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("todoRepo.NextPosition: %w", err)
	}

	return pos, nil
}

func (r *TodoRepo) Update(ctx context.Context, t *domain.Todo) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE todos SET title = $1, description = $2, status = $3, assignee_id = $4, position = $5, updated_at = now()
		 WHERE tenant_id = $6 AND id = $7`,
		t.Title, t.Description, t.Status, t.AssigneeID, t.Position,
		t.TenantID, t.ID,
	)
	if err != nil {
		return fmt.Errorf("todoRepo.Update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("todoRepo.Update: %w", domain.ErrNotFound)
	}

	return nil
}

func (r *TodoRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM todos WHERE tenant_id = $1 AND id = $2`,
		tenantID, id,
	)
	if err != nil {
		return fmt.Errorf("todoRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("todoRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}
