// handlers/opportunity.go
package handlers

import (
	"impact-tracking-system/middleware"
	"impact-tracking-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupOpportunityRoutes(app *fiber.App, opportunityService *services.OpportunityService) {
	// 🔓 Public routes — no user context, but still require Gateway auth
	app.Get("/opportunities", opportunityService.GetAllOpportunities)
	app.Get("/opportunities/:id", opportunityService.GetOpportunity)

	// 👮 Admin routes — opportunities are created and managed by admins only.
	// Auth is attached per route: a group on "/" would register the admin
	// gate as prefix middleware for every route added after this setup.
	userCtx := middleware.UserContextMiddleware()
	adminOnly := middleware.RequireAdmin()

	app.Post("/opportunities", userCtx, adminOnly, opportunityService.CreateOpportunity)
	app.Put("/opportunities/:id", userCtx, adminOnly, opportunityService.UpdateOpportunity)
	app.Patch("/opportunities/:id", userCtx, adminOnly, opportunityService.UpdateOpportunity)
	app.Delete("/opportunities/:id", userCtx, adminOnly, opportunityService.DeleteOpportunity)
	app.Patch("/opportunities/:id/status", userCtx, adminOnly, opportunityService.UpdateOpportunityStatus)
	app.Post("/opportunities/:id/image", userCtx, adminOnly, opportunityService.UploadOpportunityImage)
}
