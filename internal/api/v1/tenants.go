package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/tavolohq/tavolo/internal/domain"
	"github.com/tavolohq/tavolo/internal/server/middleware"
)

type CreateTenantInput struct {
	Body struct {
		Name string `json:"name" minLength:"2" maxLength:"100" doc:"Workspace name"`
	}
}

type CreateTenantOutput struct {
	Body *domain.Tenant
}

type ListTenantsOutput struct {
	Body []*domain.Tenant
}

func RegisterTenantRoutes(api huma.API, store DataStore) {
	huma.Register(api, huma.Operation{
		OperationID: "create-tenant",
		Method:      http.MethodPost,
		Path:        "/tenants",
		Summary:     "Create a workspace",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *CreateTenantInput) (*CreateTenantOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("missing user context")
		}

		slug := domain.Slugify(input.Body.Name)
		if !domain.ValidSlug(slug) {
			return nil, huma.Error422UnprocessableEntity("name does not yield a usable slug")
		}

		now := time.Now()
		tenant := &domain.Tenant{
			ID:        uuid.New(),
			Name:      input.Body.Name,
			Slug:      slug,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := store.Tenants().Create(ctx, tenant); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return nil, huma.Error409Conflict("a workspace with this slug already exists")
			}
			return nil, huma.Error500InternalServerError("failed to create workspace", err)
		}

		// The creating user becomes the workspace owner.
		membership := &domain.Membership{
			ID:        uuid.New(),
			UserID:    userID,
			TenantID:  tenant.ID,
			Role:      domain.RoleOwner,
			CreatedAt: now,
		}
		if err := store.Memberships().Create(ctx, membership); err != nil {
			return nil, huma.Error500InternalServerError("failed to create owner membership", err)
		}

		return &CreateTenantOutput{Body: tenant}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tenants",
		Method:      http.MethodGet,
		Path:        "/tenants",
		Summary:     "List workspaces the caller belongs to",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, _ *struct{}) (*ListTenantsOutput, error) {
		userID, ok := middleware.UserIDFromContext(ctx)
		if !ok {
			return nil, huma.Error401Unauthorized("missing user context")
		}

		tenants, err := store.Tenants().ListForUser(ctx, userID)
		if err != nil {
			return nil, huma.Error500InternalServerError("failed to list workspaces", err)
		}
		if tenants == nil {
			tenants = []*domain.Tenant{}
		}

		return &ListTenantsOutput{Body: tenants}, nil
	})
}
