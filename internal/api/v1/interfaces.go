package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/tavolohq/tavolo/internal/domain"
	"github.com/tavolohq/tavolo/internal/events"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Tenants() domain.TenantRepository
	Users() domain.UserRepository
	Memberships() domain.MembershipRepository
	Boards() domain.BoardRepository
	Todos() domain.TodoRepository
	Activities() domain.ActivityRepository
}

// AuthService abstracts authentication operations for handler testing.
// *auth.Service satisfies this interface.
type AuthService interface {
	Register(ctx context.Context, email, password, displayName string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (accessToken, refreshToken string, err error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
}

// EventBroadcaster fans committed mutations out to live subscribers.
// *stream.Broadcaster satisfies this interface.
type EventBroadcaster interface {
	ToBoard(ctx context.Context, boardID uuid.UUID, ev *events.Event, excludeUserID uuid.UUID) error
	ToTenant(ctx context.Context, tenantID uuid.UUID, ev *events.Event, excludeUserID uuid.UUID) error
}

// Notifier delivers out-of-band user notifications. *notify.Notifier
// satisfies this interface.
type Notifier interface {
	TodoAssigned(ctx context.Context, assignee *domain.User, todo *domain.Todo, board *domain.Board)
}
