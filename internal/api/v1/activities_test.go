package v1_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/tavolohq/tavolo/internal/api/v1"
	"github.com/tavolohq/tavolo/internal/domain"
)

func TestListActivities(t *testing.T) {
	t.Parallel()

	t.Run("returns_rows_newest_first", func(t *testing.T) {
		t.Parallel()

		f := newFixture(domain.RoleMember, uuid.New())
		now := time.Now().Truncate(time.Second)

		rows := []*domain.Activity{
			{ID: uuid.New(), TenantID: f.tenant.ID, BoardID: f.board.ID, Action: domain.ActivityStatusChanged, CreatedAt: now},
			{ID: uuid.New(), TenantID: f.tenant.ID, BoardID: f.board.ID, Action: domain.ActivityCreated, CreatedAt: now.Add(-time.Hour)},
		}

		activities := &mockActivityRepo{
			listByBoardFunc: func(_ context.Context, tenantID, boardID uuid.UUID, limit int) ([]*domain.Activity, error) {
				assert.Equal(t, f.tenant.ID, tenantID)
				assert.Equal(t, f.board.ID, boardID)
				assert.Equal(t, 25, limit)
				return rows, nil
			},
		}

		_, api := humatest.New(t)
		store := &mockDataStore{tenants: f.tenants, memberships: f.members, boards: f.boards, activities: activities}
		v1.RegisterActivityRoutes(api, store)

		resp := api.GetCtx(userCtx(f.userID), "/tenants/acme/boards/"+f.board.ID.String()+"/activities?limit=25")

		require.Equal(t, http.StatusOK, resp.Code)

		var got []domain.Activity
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, rows[0].ID, got[0].ID)
		assert.Equal(t, domain.ActivityStatusChanged, got[0].Action)
	})

	t.Run("no_rows_returns_empty_array", func(t *testing.T) {
		t.Parallel()

		f := newFixture(domain.RoleMember, uuid.New())
		activities := &mockActivityRepo{
			listByBoardFunc: func(context.Context, uuid.UUID, uuid.UUID, int) ([]*domain.Activity, error) {
				return nil, nil
			},
		}

		_, api := humatest.New(t)
		store := &mockDataStore{tenants: f.tenants, memberships: f.members, boards: f.boards, activities: activities}
		v1.RegisterActivityRoutes(api, store)

		resp := api.GetCtx(userCtx(f.userID), "/tenants/acme/boards/"+f.board.ID.String()+"/activities")

		require.Equal(t, http.StatusOK, resp.Code)
		assert.JSONEq(t, "[]", resp.Body.String())
	})

	t.Run("unknown_board_is_not_found", func(t *testing.T) {
		t.Parallel()

		f := newFixture(domain.RoleMember, uuid.New())

		_, api := humatest.New(t)
		store := &mockDataStore{tenants: f.tenants, memberships: f.members, boards: f.boards}
		v1.RegisterActivityRoutes(api, store)

		resp := api.GetCtx(userCtx(f.userID), "/tenants/acme/boards/"+uuid.New().String()+"/activities")

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("limit_above_cap_fails_validation", func(t *testing.T) {
		t.Parallel()

		f := newFixture(domain.RoleMember, uuid.New())

		_, api := humatest.New(t)
		store := &mockDataStore{tenants: f.tenants, memberships: f.members, boards: f.boards}
		v1.RegisterActivityRoutes(api, store)

		resp := api.GetCtx(userCtx(f.userID), "/tenants/acme/boards/"+f.board.ID.String()+"/activities?limit=500")

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})
}
