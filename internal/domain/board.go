package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Board struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedByID uuid.UUID `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewBoard creates a Board with validated required fields.
func NewBoard(tenantID, createdByID uuid.UUID, name, description string) (*Board, error) {
	if tenantID == uuid.Nil {
		return nil, errors.New("board: tenant ID is required")
	}
	if createdByID == uuid.Nil {
		return nil, errors.New("board: creator ID is required")
	}
	if name == "" {
		return nil, errors.New("board: name is required")
	}

	now := time.Now()
	return &Board{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Name:        name,
		Description: description,
		CreatedByID: createdByID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type BoardRepository interface {
	Create(ctx context.Context, b *Board) error

	// GetByID looks a board up without a tenant filter. Used by the stream
	// endpoint to resolve the owning tenant before the membership check.
	GetByID(ctx context.Context, id uuid.UUID) (*Board, error)
	GetByIDAndTenant(ctx context.Context, tenantID, id uuid.UUID) (*Board, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Board, error)
	ExistsByName(ctx context.Context, tenantID uuid.UUID, name string) (bool, error)
	Update(ctx context.Context, b *Board) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
