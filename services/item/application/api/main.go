package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/ghuser/lostfound/pkg/app"
	"github.com/ghuser/lostfound/pkg/auth"
	"github.com/ghuser/lostfound/services/item/application/handlers"
	appsvcs "github.com/ghuser/lostfound/services/item/application/services"
)

// ItemRoutes registers item, claim and admin endpoints on the provided chi
// router. a.Auth must be set. Each authenticated extension is mounted under
// /items behind RequireAuth, letting other contexts add per-item routes.
func ItemRoutes(r chi.Router, a *app.Application, svcs *appsvcs.Services, authenticated ...func(chi.Router)) {
	r.Route("/items", func(r chi.Router) {
		// public detail; the projection depends on who is asking
		r.With(a.Auth.OptionalAuth).Get("/{id}", handlers.NewGetItemHandler(svcs).Execute)

		r.Group(func(r chi.Router) {
			r.Use(a.Auth.RequireAuth)
			r.Post("/", handlers.NewPostItemHandler(svcs).Execute)
			r.Get("/", handlers.NewListItemsHandler(svcs).Execute)
			r.Get("/mine", handlers.NewListMyItemsHandler(svcs).Execute)
			r.Put("/{id}/own", handlers.NewUpdateOwnItemHandler(svcs).Execute)
			r.Delete("/{id}/own", handlers.NewDeleteOwnItemHandler(svcs).Execute)
			r.Post("/{id}/claim", handlers.NewSubmitClaimHandler(svcs).Execute)
			for _, ext := range authenticated {
				ext(r)
			}

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Get("/admin/claims", handlers.NewListClaimsHandler(svcs).Execute)
				r.Put("/{id}/approve", handlers.NewApproveItemHandler(svcs).Execute)
				r.Delete("/{id}", handlers.NewDeleteItemHandler(svcs).Execute)
				r.Put("/{id}/claim/{ref}/approve", handlers.NewApproveClaimHandler(svcs).Execute)
				r.Put("/{id}/claim/{ref}/reject", handlers.NewRejectClaimHandler(svcs).Execute)
			})
		})
	})

	r.With(a.Auth.RequireAuth, auth.RequireAdmin).Get("/admin/logs", handlers.NewAdminLogsHandler(svcs).Execute)
}

// SessionRoutes registers the browser session exchange.
func SessionRoutes(r chi.Router, a *app.Application) {
	r.Route("/auth/session", func(r chi.Router) {
		r.Post("/", a.Auth.CreateSession)
		r.Delete("/", a.Auth.DeleteSession)
	})
}
