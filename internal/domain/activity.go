package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ActivityAction string

const (
	ActivityCreated       ActivityAction = "CREATED"
	ActivityUpdated       ActivityAction = "UPDATED"
	ActivityDeleted       ActivityAction = "DELETED"
	ActivityStatusChanged ActivityAction = "STATUS_CHANGED"
	ActivityAssigned      ActivityAction = "ASSIGNED"
	ActivityUnassigned    ActivityAction = "UNASSIGNED"
)

// Activity is an append-only audit record of a todo mutation.
type Activity struct {
	ID        uuid.UUID      `json:"id"`
	TenantID  uuid.UUID      `json:"tenant_id"`
	BoardID   uuid.UUID      `json:"board_id"`
	TodoID    uuid.UUID      `json:"todo_id"`
	UserID    uuid.UUID      `json:"user_id"`
	Action    ActivityAction `json:"action"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`
}

type ActivityRepository interface {
	Create(ctx context.Context, a *Activity) error
	ListByBoard(ctx context.Context, tenantID, boardID uuid.UUID, limit int) ([]*Activity, error)
}
