package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type TodoStatus string

const (
	TodoStatusTodo       TodoStatus = "TODO"
	TodoStatusInProgress TodoStatus = "IN_PROGRESS"
	TodoStatusDone       TodoStatus = "DONE"
)

// Valid reports whether the status is one of the known column values.
func (s TodoStatus) Valid() bool {
	switch s {
	case TodoStatusTodo, TodoStatusInProgress, TodoStatusDone:
		return true
	default:
		return false
	}
}

// ValidTransition checks whether a status change is allowed. Every move
// between known columns is legal, including a no-op back to the same column;
// only unknown statuses are rejected.
func (s TodoStatus) ValidTransition(to TodoStatus) bool {
	return s.Valid() && to.Valid()
}

var ErrInvalidTransition = errors.New("todo: invalid status transition")

type Todo struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	BoardID     uuid.UUID  `json:"board_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TodoStatus `json:"status"`
	AssigneeID  *uuid.UUID `json:"assignee_id"`
	CreatedByID uuid.UUID  `json:"created_by_id"`
	Position    int        `json:"position"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type TodoRepository interface {
	Create(ctx context.Context, t *Todo) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Todo, error)
	ListByBoard(ctx context.Context, tenantID, boardID uuid.UUID) ([]*Todo, error)
	CountByBoard(ctx context.Context, tenantID, boardID uuid.UUID) (int, error)

	// NextPosition returns the position a todo appended to the board gets.
	NextPosition(ctx context.Context, tenantID, boardID uuid.UUID) (int, error)
	Update(ctx context.Context, t *Todo) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}
