package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tavolohq/tavolo/internal/domain"
	"github.com/tavolohq/tavolo/internal/events"
	"github.com/tavolohq/tavolo/internal/server/middleware"
)

type CreateTodoInput struct {
	TenantSlug string    `path:"tenantSlug" doc:"Workspace slug"`
	BoardID    uuid.UUID `path:"boardID" doc:"Board ID"`
	Body       struct {
		Title       string     `json:"title" minLength:"1" maxLength:"500" doc:"Todo title"`
		Description string     `json:"description,omitempty" doc:"Todo description"`
		AssigneeID  *uuid.UUID `json:"assigneeId,omitempty" doc:"Assignee user ID"`
	}
}

type TodoOutput struct {
	Body *domain.Todo
}

type ListTodosInput struct {
	TenantSlug string    `path:"tenantSlug" doc:"Workspace slug"`
	BoardID    uuid.UUID `path:"boardID" doc:"Board ID"`
}

type ListTodosOutput struct {
	Body []*domain.Todo
}

type UpdateTodoInput struct {
	TenantSlug string    `path:"tenantSlug" doc:"Workspace slug"`
	BoardID    uuid.UUID `path:"boardID" doc:"Board ID"`
	TodoID     uuid.UUID `path:"todoID" doc:"Todo ID"`
	Body       struct {
		Title       *string    `json:"title,omitempty" maxLength:"500" doc:"Todo title"`
		Description *string    `json:"description,omitempty" doc:"Todo description"`
		Status      *string    `json:"status,omitempty" doc:"Target status"`
		AssigneeID  *uuid.UUID `json:"assigneeId,omitempty" doc:"Assignee user ID (nil UUID clears)"`
		Position    *int       `json:"position,omitempty" minimum:"0" doc:"Position on the board"`
	}
}

type DeleteTodoInput struct {
	TenantSlug string    `path:"tenantSlug" doc:"Workspace slug"`
	BoardID    uuid.UUID `path:"boardID" doc:"Board ID"`
	TodoID     uuid.UUID `path:"todoID" doc:"Todo ID"`
}

func RegisterTodoRoutes(api huma.API, store DataStore, broadcaster EventBroadcaster, notifier Notifier) {
	huma.Register(api, huma.Operation{
		OperationID: "create-todo",
		Method:      http.MethodPost,
		Path:        "/tenants/{tenantSlug}/boards/{boardID}/todos",
		Summary:     "Create a todo",
		Tags:        []string{"Todos"},
	}, func(ctx context.Context, input *CreateTodoInput) (*TodoOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("missing user context")
		}

		ts, err := resolveTenant(ctx, store, input.TenantSlug, userID)
		if err != nil {
			return nil, err
		}

		board, err := store.Boards().GetByIDAndTenant(ctx, ts.tenant.ID, input.BoardID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to get board", err)
		}

		if input.Body.AssigneeID != nil {
			if err := requireMember(ctx, store, *input.Body.AssigneeID, ts.tenant.ID); err != nil {
				return nil, err
			}
		}

		position, err := store.Todos().NextPosition(ctx, ts.tenant.ID, board.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to compute position", err)
		}

		now := time.Now()
		todo := &domain.Todo{
			ID:          uuid.New(),
			TenantID:    ts.tenant.ID,
			BoardID:     board.ID,
			Title:       input.Body.Title,
			Description: input.Body.Description,
			Status:      domain.TodoStatusTodo,
			AssigneeID:  input.Body.AssigneeID,
			CreatedByID: userID,
			Position:    position,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := store.Todos().Create(ctx, todo); err != nil {
			return nil, huma.Error500InternalServerError("failed to create todo", err)
		}

		recordActivity(ctx, store, todo, userID, domain.ActivityCreated, nil)

		// All board viewers receive the event, the actor's tabs included, so
		// a second tab of the same user stays in sync.
		ev := events.NewTodoCreated(userID, todoItem(ctx, store, todo))
		if err := broadcaster.ToBoard(ctx, board.ID, ev, uuid.Nil); err != nil {
			log.Warn().Err(err).Str("todo_id", todo.ID.String()).Msg("todo created broadcast failed")
		}

		notifyAssignment(ctx, store, notifier, todo, board, userID)

		return &TodoOutput{Body: todo}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-todos",
		Method:      http.MethodGet,
		Path:        "/tenants/{tenantSlug}/boards/{boardID}/todos",
		Summary:     "List todos on a board",
		Tags:        []string{"Todos"},
	}, func(ctx context.Context, input *ListTodosInput) (*ListTodosOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("missing user context")
		}

		ts, err := resolveTenant(ctx, store, input.TenantSlug, userID)
		if err != nil {
			return nil, err
		}

		if _, err := store.Boards().GetByIDAndTenant(ctx, ts.tenant.ID, input.BoardID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to get board", err)
		}

		todos, err := store.Todos().ListByBoard(ctx, ts.tenant.ID, input.BoardID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list todos", err)
		}
		if todos == nil {
			todos = []*domain.Todo{}
		}

		return &ListTodosOutput{Body: todos}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-todo",
		Method:      http.MethodPatch,
		Path:        "/tenants/{tenantSlug}/boards/{boardID}/todos/{todoID}",
		Summary:     "Update a todo",
		Tags:        []string{"Todos"},
	}, func(ctx context.Context, input *UpdateTodoInput) (*TodoOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("missing user context")
		}

		ts, err := resolveTenant(ctx, store, input.TenantSlug, userID)
		if err != nil {
			return nil, err
		}

		board, err := store.Boards().GetByIDAndTenant(ctx, ts.tenant.ID, input.BoardID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("board not found")
			}
			return nil, huma.Error500InternalServerError("failed to get board", err)
		}

		todo, err := store.Todos().GetByID(ctx, ts.tenant.ID, input.TodoID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("todo not found")
			}
			return nil, huma.Error500InternalServerError("failed to get todo", err)
		}
		if todo.BoardID != board.ID {
			return nil, huma.Error404NotFound("todo not found")
		}

		// Track which fields actually change; receivers use this to patch
		// local state without a diff of their own.
		changes := make(map[string]bool)
		oldStatus := todo.Status
		assigneeChanged := false

		if input.Body.Title != nil && *input.Body.Title != todo.Title {
			todo.Title = *input.Body.Title
			changes["title"] = true
		}
		if input.Body.Description != nil && *input.Body.Description != todo.Description {
			todo.Description = *input.Body.Description
			changes["description"] = true
		}
		if input.Body.Position != nil && *input.Body.Position != todo.Position {
			todo.Position = *input.Body.Position
			changes["position"] = true
		}
		if input.Body.AssigneeID != nil {
			if *input.Body.AssigneeID == uuid.Nil {
				if todo.AssigneeID != nil {
					todo.AssigneeID = nil
					changes["assignee"] = true
				}
			} else if todo.AssigneeID == nil || *todo.AssigneeID != *input.Body.AssigneeID {
				if err := requireMember(ctx, store, *input.Body.AssigneeID, ts.tenant.ID); err != nil {
					return nil, err
				}
				id := *input.Body.AssigneeID
				todo.AssigneeID = &id
				changes["assignee"] = true
				assigneeChanged = true
			}
		}
		if input.Body.Status != nil {
			newStatus := domain.TodoStatus(*input.Body.Status)
			if !todo.Status.ValidTransition(newStatus) {
				return nil, huma.Error422UnprocessableEntity(domain.ErrInvalidTransition.Error())
			}
			if newStatus != todo.Status {
				todo.Status = newStatus
				changes["status"] = true
			}
		}

		if len(changes) == 0 {
			return &TodoOutput{Body: todo}, nil
		}

		todo.UpdatedAt = time.Now()
		if err := store.Todos().Update(ctx, todo); err != nil {
			return nil, huma.Error500InternalServerError("failed to update todo", err)
		}

		item := todoItem(ctx, store, todo)

		// A pure status move gets its own event carrying old and new status;
		// anything else is a generic update with the changes map.
		var ev *events.Event
		if changes["status"] && len(changes) == 1 {
			ev = events.NewTodoStatusChanged(userID, oldStatus, todo.Status, item)
			recordActivity(ctx, store, todo, userID, domain.ActivityStatusChanged, map[string]any{
				"oldStatus": string(oldStatus),
				"newStatus": string(todo.Status),
			})
		} else {
			ev = events.NewTodoUpdated(userID, item, changes)
			action := domain.ActivityUpdated
			if changes["assignee"] {
				action = domain.ActivityAssigned
				if todo.AssigneeID == nil {
					action = domain.ActivityUnassigned
				}
			}
			recordActivity(ctx, store, todo, userID, action, map[string]any{"changes": changes})
		}

		if err := broadcaster.ToBoard(ctx, board.ID, ev, uuid.Nil); err != nil {
			log.Warn().Err(err).Str("todo_id", todo.ID.String()).Msg("todo updated broadcast failed")
		}

		if assigneeChanged {
			notifyAssignment(ctx, store, notifier, todo, board, userID)
		}

		return &TodoOutput{Body: todo}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-todo",
		Method:      http.MethodDelete,
		Path:        "/tenants/{tenantSlug}/boards/{boardID}/todos/{todoID}",
		Summary:     "Delete a todo",
		Tags:        []string{"Todos"},
	}, func(ctx context.Context, input *DeleteTodoInput) (*struct{}, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("missing user context")
		}

		ts, err := resolveTenant(ctx, store, input.TenantSlug, userID)
		if err != nil {
			return nil, err
		}

		todo, err := store.Todos().GetByID(ctx, ts.tenant.ID, input.TodoID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, huma.Error404NotFound("todo not found")
			}
			return nil, huma.Error500InternalServerError("failed to get todo", err)
		}
		if todo.BoardID != input.BoardID {
			return nil, huma.Error404NotFound("todo not found")
		}

		if err := store.Todos().Delete(ctx, ts.tenant.ID, todo.ID); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete todo", err)
		}

		recordActivity(ctx, store, todo, userID, domain.ActivityDeleted, map[string]any{"title": todo.Title})

		ev := events.NewTodoDeleted(userID, todo.ID, todo.BoardID)
		if err := broadcaster.ToBoard(ctx, todo.BoardID, ev, uuid.Nil); err != nil {
			log.Warn().Err(err).Str("todo_id", todo.ID.String()).Msg("todo deleted broadcast failed")
		}

		return nil, nil
	})
}

// requireMember verifies that userID belongs to the tenant, for assignee
// validation. 422 because the request body, not the caller, is at fault.
func requireMember(ctx context.Context, store DataStore, userID, tenantID uuid.UUID) error {
	_, err := store.Memberships().Get(ctx, userID, tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return huma.Error422UnprocessableEntity("assignee is not a member of this workspace")
		}
		return huma.Error500InternalServerError("failed to look up assignee", err)
	}
	return nil
}

// recordActivity appends an activity row. Failures are logged, never surfaced:
// the mutation already committed.
func recordActivity(ctx context.Context, store DataStore, todo *domain.Todo, userID uuid.UUID, action domain.ActivityAction, metadata map[string]any) {
	activity := &domain.Activity{
		ID:        uuid.New(),
		TenantID:  todo.TenantID,
		BoardID:   todo.BoardID,
		TodoID:    todo.ID,
		UserID:    userID,
		Action:    action,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	if err := store.Activities().Create(ctx, activity); err != nil {
		log.Warn().Err(err).Str("todo_id", todo.ID.String()).Str("action", string(action)).Msg("failed to record activity")
	}
}

// notifyAssignment notifies the assignee, skipping self-assignment.
func notifyAssignment(ctx context.Context, store DataStore, notifier Notifier, todo *domain.Todo, board *domain.Board, actorID uuid.UUID) {
	if notifier == nil || todo.AssigneeID == nil || *todo.AssigneeID == actorID {
		return
	}

	assignee, err := store.Users().GetByID(ctx, *todo.AssigneeID)
	if err != nil {
		log.Warn().Err(err).Str("todo_id", todo.ID.String()).Msg("failed to load assignee for notification")
		return
	}

	notifier.TodoAssigned(ctx, assignee, todo, board)
}
