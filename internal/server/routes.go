package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/tavolohq/tavolo/internal/api/live"
	v1 "github.com/tavolohq/tavolo/internal/api/v1"
	"github.com/tavolohq/tavolo/internal/stream"
)

func registerAuthRoutes(api huma.API, authSvc v1.AuthService) {
	v1.RegisterAuthRoutes(api, authSvc)
}

func registerAPIRoutes(api huma.API, store v1.DataStore, broadcaster *stream.Broadcaster, notifier v1.Notifier) {
	v1.RegisterTenantRoutes(api, store)
	v1.RegisterBoardRoutes(api, store, broadcaster)
	v1.RegisterTodoRoutes(api, store, broadcaster, notifier)
	v1.RegisterActivityRoutes(api, store)
}

func registerStreamRoutes(r chi.Router, handler *live.Handler) {
	r.Get("/stream/boards/{boardID}", handler.ServeBoardSSE)
	r.Get("/stream/tenants/{tenantSlug}", handler.ServeTenantSSE)
}

func registerWSRoutes(r chi.Router, handler *live.Handler) {
	r.Get("/boards/{boardID}", handler.ServeBoardWS)
}
