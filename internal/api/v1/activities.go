package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/tavolohq/tavolo/internal/domain"
	"github.com/tavolohq/tavolo/internal/server/middleware"
)

type ListActivitiesInput struct {
	TenantSlug string    `path:"tenantSlug" doc:"Workspace slug"`
	BoardID    uuid.UUID `path:"boardID" doc:"Board ID"`
	Limit      int       `query:"limit" minimum:"1" maximum:"200" doc:"Max rows, newest first (default 50)"`
}

type ListActivitiesOutput struct {
	Body []*domain.Activity
}

func RegisterActivityRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "list-activities",
		Method:      http.MethodGet,
		Path:        "/tenants/{tenantSlug}/boards/{boardID}/activities",
		Summary:     "List recent activity on a board",
		Tags:        []string{"Activities"},
	}, func(ctx context.Context, input *ListActivitiesInput) (*ListActivitiesOutput, error) {
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

		activities, err := store.Activities().ListByBoard(ctx, ts.tenant.ID, input.BoardID, input.Limit)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list activities", err)
		}
		if activities == nil {
			activities = []*domain.Activity{}
		}

		return &ListActivitiesOutput{Body: activities}, nil
	})
}
