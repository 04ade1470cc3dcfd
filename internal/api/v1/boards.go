package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tavolohq/tavolo/internal/domain"
	"github.com/tavolohq/tavolo/internal/events"
	"github.com/tavolohq/tavolo/internal/server/middleware"
)

type CreateBoardInput struct {
	TenantSlug string `path:"tenantSlug" doc:"Workspace slug"`
	Body       struct {
		Name        string `json:"name" minLength:"1" maxLength:"100" doc:"Board name"`
		Description string `json:"description,omitempty" maxLength:"500" doc:"Board description"`
	}
}

type BoardOutput struct {
	Body *domain.Board
}

type ListBoardsInput struct {
	TenantSlug string `path:"tenantSlug" doc:"Workspace slug"`
}

type ListBoardsOutput struct {
	Body []events.BoardSummary
}

type GetBoardInput struct {
	TenantSlug string    `path:"tenantSlug" doc:"Workspace slug"`
	BoardID    uuid.UUID `path:"boardID" doc:"Board ID"`
}

type UpdateBoardInput struct {
	TenantSlug string    `path:"tenantSlug" doc:"Workspace slug"`
	BoardID    uuid.UUID `path:"boardID" doc:"Board ID"`
	Body       struct {
		Name        *string `json:"name,omitempty" maxLength:"100" doc:"Board name"`
		Description *string `json:"description,omitempty" maxLength:"500" doc:"Board description"`
	}
}

type DeleteBoardInput struct {
	TenantSlug string    `path:"tenantSlug" doc:"Workspace slug"`
	BoardID    uuid.UUID `path:"boardID" doc:"Board ID"`
}

// canModifyBoard reports whether the caller may update or delete the board:
// its creator, or the workspace owner.
func canModifyBoard(board *domain.Board, userID uuid.UUID, membership *domain.Membership) bool {
	return board.CreatedByID == userID || membership.Role == domain.RoleOwner
}

func RegisterBoardRoutes(api huma.API, store DataStore, broadcaster EventBroadcaster) {
	huma.Register(api, huma.Operation{
		OperationID: "create-board",
		Method:      http.MethodPost,
		Path:        "/tenants/{tenantSlug}/boards",
		Summary:     "Create a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *CreateBoardInput) (*BoardOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("missing user context")
		}

		ts, err := resolveTenant(ctx, store, input.TenantSlug, userID)
		if err != nil {
			return nil, err
		}

		exists, err := store.Boards().ExistsByName(ctx, ts.tenant.ID, input.Body.Name)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to check board name", err)
		}
		if exists {
			return nil, huma.Error409Conflict("a board with this name already exists")
		}

		board, err := domain.NewBoard(ts.tenant.ID, userID, input.Body.Name, input.Body.Description)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}

		if err := store.Boards().Create(ctx, board); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, huma.Error409Conflict("a board with this name already exists")
			}
			return nil, huma.Error500InternalServerError("failed to create board", err)
		}

		// Other members watching the board list learn about the new board;
		// the actor's own tab already rendered it from this response.
		ev := events.NewBoardCreated(userID, boardSummary(ctx, store, board))
		if err := broadcaster.ToTenant(ctx, ts.tenant.ID, ev, userID); err != nil {
			log.Warn().Err(err).Str("board_id", board.ID.String()).Msg("board created broadcast failed")
		}

		return &BoardOutput{Body: board}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-boards",
		Method:      http.MethodGet,
		Path:        "/tenants/{tenantSlug}/boards",
		Summary:     "List boards in a workspace",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *ListBoardsInput) (*ListBoardsOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("missing user context")
		}

		ts, err := resolveTenant(ctx, store, input.TenantSlug, userID)
		if err != nil {
			return nil, err
		}

		boards, err := store.Boards().ListByTenant(ctx, ts.tenant.ID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list boards", err)
		}

		summaries := make([]events.BoardSummary, 0, len(boards))
		for _, b := range boards {
			summaries = append(summaries, boardSummary(ctx, store, b))
		}

		return &ListBoardsOutput{Body: summaries}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-board",
		Method:      http.MethodGet,
		Path:        "/tenants/{tenantSlug}/boards/{boardID}",
		Summary:     "Get a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *GetBoardInput) (*BoardOutput, error) {
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

		return &BoardOutput{Body: board}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "update-board",
		Method:      http.MethodPatch,
		Path:        "/tenants/{tenantSlug}/boards/{boardID}",
		Summary:     "Update a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *UpdateBoardInput) (*BoardOutput, error) {
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

		if !canModifyBoard(board, userID, ts.membership) {
			return nil, huma.Error403Forbidden("only the board creator or workspace owner can modify it")
		}

		if input.Body.Name != nil && *input.Body.Name != board.Name {
			exists, err := store.Boards().ExistsByName(ctx, ts.tenant.ID, *input.Body.Name)
			if err != nil {
				return nil, huma.Error500InternalServerError("failed to check board name", err)
			}
			if exists {
				return nil, huma.Error409Conflict("a board with this name already exists")
			}
			board.Name = *input.Body.Name
		}
		if input.Body.Description != nil {
			board.Description = *input.Body.Description
		}

		if err := store.Boards().Update(ctx, board); err != nil {
			return nil, huma.Error500InternalServerError("failed to update board", err)
		}

		// Board viewers update their header; list viewers update the tile.
		ev := events.NewBoardUpdated(userID, board.ID, input.Body.Name, input.Body.Description)
		if err := broadcaster.ToBoard(ctx, board.ID, ev, uuid.Nil); err != nil {
			log.Warn().Err(err).Str("board_id", board.ID.String()).Msg("board updated broadcast failed")
		}
		if err := broadcaster.ToTenant(ctx, ts.tenant.ID, ev, uuid.Nil); err != nil {
			log.Warn().Err(err).Str("board_id", board.ID.String()).Msg("board updated broadcast failed")
		}

		return &BoardOutput{Body: board}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delete-board",
		Method:      http.MethodDelete,
		Path:        "/tenants/{tenantSlug}/boards/{boardID}",
		Summary:     "Delete a board",
		Tags:        []string{"Boards"},
	}, func(ctx context.Context, input *DeleteBoardInput) (*struct{}, error) {
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

		if !canModifyBoard(board, userID, ts.membership) {
			return nil, huma.Error403Forbidden("only the board creator or workspace owner can modify it")
		}

		if err := store.Boards().Delete(ctx, ts.tenant.ID, board.ID); err != nil {
			return nil, huma.Error500InternalServerError("failed to delete board", err)
		}

		ev := events.NewBoardDeleted(userID, board.ID)
		if err := broadcaster.ToBoard(ctx, board.ID, ev, uuid.Nil); err != nil {
			log.Warn().Err(err).Str("board_id", board.ID.String()).Msg("board deleted broadcast failed")
		}
		if err := broadcaster.ToTenant(ctx, ts.tenant.ID, ev, uuid.Nil); err != nil {
			log.Warn().Err(err).Str("board_id", board.ID.String()).Msg("board deleted broadcast failed")
		}

		return nil, nil
	})
}
