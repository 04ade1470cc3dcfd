package v1

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/tavolohq/tavolo/internal/domain"
	"github.com/tavolohq/tavolo/internal/events"
)

// tenantScope is the per-request tenant context resolved from the URL slug.
type tenantScope struct {
	tenant     *domain.Tenant
	membership *domain.Membership
}

// resolveTenant loads the tenant by slug and verifies the caller's membership.
// 404 for an unknown slug, 403 for a non-member.
func resolveTenant(ctx context.Context, store DataStore, slug string, userID uuid.UUID) (*tenantScope, error) {
	tenant, err := store.Tenants().GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error404NotFound("tenant not found")
		}
		return nil, huma.Error500InternalServerError("failed to look up tenant", err)
	}

	membership, err := store.Memberships().Get(ctx, userID, tenant.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, huma.Error403Forbidden("not a member of this tenant")
		}
		return nil, huma.Error500InternalServerError("failed to look up membership", err)
	}

	return &tenantScope{tenant: tenant, membership: membership}, nil
}

// actorFor builds the event Actor shape for a user. A nil user (deleted
// account) degrades to an ID-only actor.
func actorFor(user *domain.User, id uuid.UUID) events.Actor {
	if user == nil {
		return events.Actor{ID: id}
	}
	return events.Actor{ID: user.ID, DisplayName: user.DisplayName}
}

// todoItem assembles the full wire representation of a todo. Assignee and
// creator lookups are best-effort: a missing user never blocks the event.
func todoItem(ctx context.Context, store DataStore, todo *domain.Todo) events.TodoItem {
	item := events.TodoItem{
		ID:          todo.ID,
		BoardID:     todo.BoardID,
		Title:       todo.Title,
		Description: todo.Description,
		Status:      todo.Status,
		Position:    todo.Position,
		CreatedAt:   todo.CreatedAt,
		UpdatedAt:   todo.UpdatedAt,
	}

	creator, _ := store.Users().GetByID(ctx, todo.CreatedByID)
	item.CreatedBy = actorFor(creator, todo.CreatedByID)

	if todo.AssigneeID != nil {
		assignee, _ := store.Users().GetByID(ctx, *todo.AssigneeID)
		actor := actorFor(assignee, *todo.AssigneeID)
		item.Assignee = &actor
	}

	return item
}

// boardSummary assembles the board-list wire shape, including the todo count.
func boardSummary(ctx context.Context, store DataStore, board *domain.Board) events.BoardSummary {
	creator, _ := store.Users().GetByID(ctx, board.CreatedByID)

	count, err := store.Todos().CountByBoard(ctx, board.TenantID, board.ID)
	if err != nil {
		count = 0
	}

	return events.BoardSummary{
		ID:          board.ID,
		Name:        board.Name,
		Description: board.Description,
		CreatedAt:   board.CreatedAt,
		UpdatedAt:   board.UpdatedAt,
		CreatedBy:   actorFor(creator, board.CreatedByID),
		TodosCount:  count,
	}
}
