package v1_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/tavolohq/tavolo/internal/api/v1"
	"github.com/tavolohq/tavolo/internal/domain"
	"github.com/tavolohq/tavolo/internal/events"
)

// todoFixture extends the tenant/board fixture with a todo repo and the
// collaborators the todo routes need.
type todoFixture struct {
	*fixture
	todos       *mockTodoRepo
	users       *mockUserRepo
	activities  *mockActivityRepo
	broadcaster *mockBroadcaster
	notifier    *mockNotifier
}

func newTodoFixture() *todoFixture {
	base := newFixture(domain.RoleMember, uuid.New())
	return &todoFixture{
		fixture:     base,
		todos:       &mockTodoRepo{},
		users:       &mockUserRepo{},
		activities:  &mockActivityRepo{},
		broadcaster: &mockBroadcaster{},
		notifier:    &mockNotifier{},
	}
}

func (f *todoFixture) store() *mockDataStore {
	return &mockDataStore{
		tenants:     f.tenants,
		users:       f.users,
		memberships: f.members,
		boards:      f.boards,
		todos:       f.todos,
		activities:  f.activities,
	}
}

// existingTodo seeds the todo repo with one todo owned by the fixture user.
func (f *todoFixture) existingTodo() *domain.Todo {
	now := time.Now().Truncate(time.Second)
	todo := &domain.Todo{
		ID:          uuid.New(),
		TenantID:    f.tenant.ID,
		BoardID:     f.board.ID,
		Title:       "Write release notes",
		Status:      domain.TodoStatusTodo,
		CreatedByID: f.userID,
		Position:    3,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.todos.getByIDFunc = func(_ context.Context, tenantID, id uuid.UUID) (*domain.Todo, error) {
		if tenantID == todo.TenantID && id == todo.ID {
			return todo, nil
		}
		return nil, domain.ErrNotFound
	}
	return todo
}

func (f *todoFixture) todoPath(todoID uuid.UUID) string {
	return "/tenants/acme/boards/" + f.board.ID.String() + "/todos/" + todoID.String()
}

// ---------------------------------------------------------------------------
// POST /tenants/{tenantSlug}/boards/{boardID}/todos
// ---------------------------------------------------------------------------

func TestCreateTodo(t *testing.T) {
	t.Parallel()

	t.Run("happy_path_appends_and_broadcasts_to_everyone", func(t *testing.T) {
		t.Parallel()

		f := newTodoFixture()
		f.todos.nextPositionFunc = func(context.Context, uuid.UUID, uuid.UUID) (int, error) {
			return 5, nil
		}
		var created *domain.Todo
		f.todos.createFunc = func(_ context.Context, todo *domain.Todo) error {
			created = todo
			return nil
		}

		_, api := humatest.New(t)
		v1.RegisterTodoRoutes(api, f.store(), f.broadcaster, f.notifier)

		resp := api.PostCtx(userCtx(f.userID), "/tenants/acme/boards/"+f.board.ID.String()+"/todos", map[string]any{
			"title": "Ship it",
		})

		require.Equal(t, http.StatusOK, resp.Code)
		require.NotNil(t, created)
		assert.Equal(t, "Ship it", created.Title)
		assert.Equal(t, domain.TodoStatusTodo, created.Status)
		assert.Equal(t, 5, created.Position)
		assert.Equal(t, f.userID, created.CreatedByID)

		calls := f.broadcaster.all()
		require.Len(t, calls, 1)
		assert.Equal(t, "board", calls[0].scopeKind)
		assert.Equal(t, f.board.ID, calls[0].scopeID)
		assert.Equal(t, events.TypeTodoCreated, calls[0].event.Type)
		// Nobody excluded: the actor's second tab renders from the event.
		assert.Equal(t, uuid.Nil, calls[0].exclude)

		assert.Equal(t, []domain.ActivityAction{domain.ActivityCreated}, f.activities.actions())
		assert.Empty(t, f.notifier.all(), "no assignee, no notification")
	})

	t.Run("assigning_another_member_notifies_them", func(t *testing.T) {
		t.Parallel()

		f := newTodoFixture()
		assignee := &domain.User{ID: uuid.New(), DisplayName: "Robin", IsActive: true}

		// Both the actor and the assignee are members.
		memberGet := f.members.getFunc
		f.members.getFunc = func(ctx context.Context, userID, tenantID uuid.UUID) (*domain.Membership, error) {
			if userID == assignee.ID && tenantID == f.tenant.ID {
				return &domain.Membership{UserID: userID, TenantID: tenantID, Role: domain.RoleMember}, nil
			}
			return memberGet(ctx, userID, tenantID)
		}
		f.users.getByIDFunc = func(_ context.Context, id uuid.UUID) (*domain.User, error) {
			if id == assignee.ID {
				return assignee, nil
			}
			return nil, domain.ErrNotFound
		}
		f.todos.createFunc = func(context.Context, *domain.Todo) error { return nil }

		_, api := humatest.New(t)
		v1.RegisterTodoRoutes(api, f.store(), f.broadcaster, f.notifier)

		resp := api.PostCtx(userCtx(f.userID), "/tenants/acme/boards/"+f.board.ID.String()+"/todos", map[string]any{
			"title":      "Review PR",
			"assigneeId": assignee.ID.String(),
		})

		require.Equal(t, http.StatusOK, resp.Code)

		notes := f.notifier.all()
		require.Len(t, notes, 1)
		assert.Equal(t, assignee.ID, notes[0].assignee.ID)
		assert.Equal(t, "Review PR", notes[0].todo.Title)
		assert.Equal(t, f.board.ID, notes[0].board.ID)
	})

	t.Run("self_assignment_skips_notification", func(t *testing.T) {
		t.Parallel()

		f := newTodoFixture()
		f.todos.createFunc = func(context.Context, *domain.Todo) error { return nil }

		_, api := humatest.New(t)
		v1.RegisterTodoRoutes(api, f.store(), f.broadcaster, f.notifier)

		resp := api.PostCtx(userCtx(f.userID), "/tenants/acme/boards/"+f.board.ID.String()+"/todos", map[string]any{
			"title":      "My own task",
			"assigneeId": f.userID.String(),
		})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Empty(t, f.notifier.all())
	})

	t.Run("assignee_outside_workspace_is_rejected", func(t *testing.T) {
		t.Parallel()

		f := newTodoFixture()

		_, api := humatest.New(t)
		v1.RegisterTodoRoutes(api, f.store(), f.broadcaster, f.notifier)

		resp := api.PostCtx(userCtx(f.userID), "/tenants/acme/boards/"+f.board.ID.String()+"/todos", map[string]any{
			"title":      "Orphan",
			"assigneeId": uuid.New().String(),
		})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		assert.Empty(t, f.broadcaster.all())
	})

	t.Run("unknown_board_is_not_found", func(t *testing.T) {
		t.Parallel()

		f := newTodoFixture()

		_, api := humatest.New(t)
		v1.RegisterTodoRoutes(api, f.store(), f.broadcaster, f.notifier)

		resp := api.PostCtx(userCtx(f.userID), "/tenants/acme/boards/"+uuid.New().String()+"/todos", map[string]any{
			"title": "Lost",
		})

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// PATCH /tenants/{tenantSlug}/boards/{boardID}/todos/{todoID}
// ---------------------------------------------------------------------------

func TestUpdateTodo(t *testing.T) {
	t.Parallel()

	t.Run("status_only_move_emits_status_changed", func(t *testing.T) {
		t.Parallel()

		f := newTodoFixture()
		todo := f.existingTodo()
		f.todos.updateFunc = func(context.Context, *domain.Todo) error { return nil }

		_, api := humatest.New(t)
		v1.RegisterTodoRoutes(api, f.store(), f.broadcaster, f.notifier)

		resp := api.PatchCtx(userCtx(f.userID), f.todoPath(todo.ID), map[string]any{
			"status": string(domain.TodoStatusInProgress),
		})

		require.Equal(t, http.StatusOK, resp.Code)

		calls := f.broadcaster.all()
		require.Len(t, calls, 1)
		require.Equal(t, events.TypeTodoStatusChanged, calls[0].event.Type)

		payload, ok := calls[0].event.Payload.(events.TodoStatusChangedPayload)
		require.True(t, ok)
		assert.Equal(t, domain.TodoStatusTodo, payload.OldStatus)
		assert.Equal(t, domain.TodoStatusInProgress, payload.NewStatus)
		assert.Equal(t, todo.ID, payload.TodoID)

		assert.Equal(t, []domain.ActivityAction{domain.ActivityStatusChanged}, f.activities.actions())
	})

	t.Run("mixed_update_emits_generic_update_with_changes", func(t *testing.T) {
		t.Parallel()

		f := newTodoFixture()
		todo := f.existingTodo()
		f.todos.updateFunc = func(context.Context, *domain.Todo) error { return nil }

		_, api := humatest.New(t)
		v1.RegisterTodoRoutes(api, f.store(), f.broadcaster, f.notifier)

		resp := api.PatchCtx(userCtx(f.userID), f.todoPath(todo.ID), map[string]any{
			"title":  "Write better release notes",
			"status": string(domain.TodoStatusInProgress),
		})

		require.Equal(t, http.StatusOK, resp.Code)

		calls := f.broadcaster.all()
		require.Len(t, calls, 1)
		require.Equal(t, events.TypeTodoUpdated, calls[0].event.Type)

		payload, ok := calls[0].event.Payload.(events.TodoUpdatedPayload)
		require.True(t, ok)
		assert.Equal(t, map[string]bool{"title": true, "status": true}, payload.Changes)
		assert.Equal(t, "Write better release notes", payload.Todo.Title)
	})

	t.Run("invalid_status_transition_is_rejected", func(t *testing.T) {
		t.Parallel()

		f := newTodoFixture()
		todo := f.existingTodo()

		_, api := humatest.New(t)
		v1.RegisterTodoRoutes(api, f.store(), f.broadcaster, f.notifier)

		resp := api.PatchCtx(userCtx(f.userID), f.todoPath(todo.ID), map[string]any{
			"status": "BLOCKED",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		assert.Empty(t, f.broadcaster.all())
		assert.Empty(t, f.activities.actions())
	})

	t.Run("noop_patch_skips_event_and_activity", func(t *testing.T) {
		t.Parallel()

		f := newTodoFixture()
		todo := f.existingTodo()

		_, api := humatest.New(t)
		v1.RegisterTodoRoutes(api, f.store(), f.broadcaster, f.notifier)

		resp := api.PatchCtx(userCtx(f.userID), f.todoPath(todo.ID), map[string]any{
			"title": todo.Title,
		})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Empty(t, f.broadcaster.all())
		assert.Empty(t, f.activities.actions())
	})

	t.Run("reassignment_records_assigned_and_notifies", func(t *testing.T) {
		t.Parallel()

		f := newTodoFixture()
		todo := f.existingTodo()
		assignee := &domain.User{ID: uuid.New(), DisplayName: "Robin", IsActive: true}

		memberGet := f.members.getFunc
		f.members.getFunc = func(ctx context.Context, userID, tenantID uuid.UUID) (*domain.Membership, error) {
			if userID == assignee.ID && tenantID == f.tenant.ID {
				return &domain.Membership{UserID: userID, TenantID: tenantID, Role: domain.RoleMember}, nil
			}
			return memberGet(ctx, userID, tenantID)
		}
		f.users.getByIDFunc = func(_ context.Context, id uuid.UUID) (*domain.User, error) {
			if id == assignee.ID {
				return assignee, nil
			}
			return nil, domain.ErrNotFound
		}
		f.todos.updateFunc = func(context.Context, *domain.Todo) error { return nil }

		_, api := humatest.New(t)
		v1.RegisterTodoRoutes(api, f.store(), f.broadcaster, f.notifier)

		resp := api.PatchCtx(userCtx(f.userID), f.todoPath(todo.ID), map[string]any{
			"assigneeId": assignee.ID.String(),
		})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, []domain.ActivityAction{domain.ActivityAssigned}, f.activities.actions())

		notes := f.notifier.all()
		require.Len(t, notes, 1)
		assert.Equal(t, assignee.ID, notes[0].assignee.ID)
	})

	t.Run("clearing_assignee_records_unassigned", func(t *testing.T) {
		t.Parallel()

		f := newTodoFixture()
		todo := f.existingTodo()
		prev := uuid.New()
		todo.AssigneeID = &prev
		f.todos.updateFunc = func(context.Context, *domain.Todo) error { return nil }

		_, api := humatest.New(t)
		v1.RegisterTodoRoutes(api, f.store(), f.broadcaster, f.notifier)

		resp := api.PatchCtx(userCtx(f.userID), f.todoPath(todo.ID), map[string]any{
			"assigneeId": uuid.Nil.String(),
		})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Nil(t, todo.AssigneeID)
		assert.Equal(t, []domain.ActivityAction{domain.ActivityUnassigned}, f.activities.actions())
		assert.Empty(t, f.notifier.all())
	})

	t.Run("todo_from_another_board_is_not_found", func(t *testing.T) {
		t.Parallel()

		f := newTodoFixture()
		todo := f.existingTodo()
		todo.BoardID = uuid.New()

		_, api := humatest.New(t)
		v1.RegisterTodoRoutes(api, f.store(), f.broadcaster, f.notifier)

		resp := api.PatchCtx(userCtx(f.userID), f.todoPath(todo.ID), map[string]any{
			"title": "Stolen",
		})

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// DELETE /tenants/{tenantSlug}/boards/{boardID}/todos/{todoID}
// ---------------------------------------------------------------------------

func TestDeleteTodo(t *testing.T) {
	t.Parallel()

	t.Run("happy_path_broadcasts_deletion", func(t *testing.T) {
		t.Parallel()

		f := newTodoFixture()
		todo := f.existingTodo()

		deleted := false
		f.todos.deleteFunc = func(_ context.Context, tenantID, id uuid.UUID) error {
			assert.Equal(t, f.tenant.ID, tenantID)
			assert.Equal(t, todo.ID, id)
			deleted = true
			return nil
		}

		_, api := humatest.New(t)
		v1.RegisterTodoRoutes(api, f.store(), f.broadcaster, f.notifier)

		resp := api.DeleteCtx(userCtx(f.userID), f.todoPath(todo.ID))

		require.Equal(t, http.StatusNoContent, resp.Code)
		assert.True(t, deleted)

		calls := f.broadcaster.all()
		require.Len(t, calls, 1)
		require.Equal(t, events.TypeTodoDeleted, calls[0].event.Type)
		payload, ok := calls[0].event.Payload.(events.TodoDeletedPayload)
		require.True(t, ok)
		assert.Equal(t, todo.ID, payload.TodoID)
		assert.Equal(t, f.board.ID, payload.BoardID)

		assert.Equal(t, []domain.ActivityAction{domain.ActivityDeleted}, f.activities.actions())
	})

	t.Run("board_mismatch_is_not_found", func(t *testing.T) {
		t.Parallel()

		f := newTodoFixture()
		todo := f.existingTodo()
		todo.BoardID = uuid.New()

		_, api := humatest.New(t)
		v1.RegisterTodoRoutes(api, f.store(), f.broadcaster, f.notifier)

		resp := api.DeleteCtx(userCtx(f.userID), f.todoPath(todo.ID))

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}
