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

type MembershipRepo struct {
	pool *pgxpool.Pool
}

func NewMembershipRepo(pool *pgxpool.Pool) *MembershipRepo {
	return &MembershipRepo{pool: pool}
}

func (r *MembershipRepo) Create(ctx context.Context, m *domain.Membership) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO memberships (id, user_id, tenant_id, role, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.UserID, m.TenantID, m.Role, m.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("membershipRepo.Create: %w", domain.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("membershipRepo.Create: %w", err)
	}

	return nil
}

func (r *MembershipRepo) Get(ctx context.Context, userID, tenantID uuid.UUID) (*domain.Membership, error) {
	var m domain.Membership

	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, tenant_id, role, created_at
		 FROM memberships WHERE user_id = $1 AND tenant_id = $2`,
		userID, tenantID,
	).Scan(&m.ID, &m.UserID, &m.TenantID, &m.Role, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("membershipRepo.Get: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("membershipRepo.Get: %w", err)
	}

	return &m, nil
}

func (r *MembershipRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*domain.Membership, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, tenant_id, role, created_at
		 FROM memberships WHERE tenant_id = $1
		 ORDER BY created_at
		 LIMIT 1000`,
		tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("membershipRepo.ListByTenant: %w", err)
	}
	defer rows.Close()

	var memberships []*domain.Membership
	for rows.Next() {
		var m domain.Membership

		err = rows.Scan(&m.ID, &m.UserID, &m.TenantID, &m.Role, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("membershipRepo.ListByTenant: scan: %w", err)
		}

		memberships = append(memberships, &m)
	}
	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("membershipRepo.ListByTenant: rows: %w", err)
	}

	return memberships, nil
}

func (r *MembershipRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM memberships WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("membershipRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("membershipRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}
