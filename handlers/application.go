// handlers/application.go
package handlers

import (
	"errors"

	"impact-tracking-system/middleware"
	"impact-tracking-system/models"
	"impact-tracking-system/services"
	"impact-tracking-system/utils"

	"github.com/gofiber/fiber/v2"
)

// statusForError maps service-layer tagged errors onto HTTP status codes.
// Anything unrecognized is a 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrDuplicateApplication):
		return fiber.StatusConflict
	case errors.Is(err, services.ErrOpportunityClosed),
		errors.Is(err, services.ErrInvalidHours),
		errors.Is(err, services.ErrInvalidTransition):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func errorJSON(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "internal error"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func SetupApplicationRoutes(app *fiber.App, applicationService *services.ApplicationService) {
	// Auth attached per route rather than via groups on "/" — root-prefix
	// group middleware would apply to every route registered afterwards.
	userCtx := middleware.UserContextMiddleware()
	adminOnly := middleware.RequireAdmin()

	// 🔐 Secured routes — require user context (userID, roles)
	app.Post("/applications", userCtx, func(c *fiber.Ctx) error {
		callerID := c.Locals("user_id").(string)

		var req struct {
			UserID        string `json:"user_id"` // optional, admins may apply on behalf
			OpportunityID string `json:"opportunity_id" validate:"required,uuid"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if fields := utils.ValidateStruct(req); fields != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "fields": fields})
		}

		userID := callerID
		if req.UserID != "" && req.UserID != callerID {
			if !middleware.HasRole(c, "admin") {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "cannot apply on behalf of another user"})
			}
			userID = req.UserID
		}

		application, err := applicationService.CreateApplication(userID, req.OpportunityID)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(application)
	})

	app.Get("/applications/mine", userCtx, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		apps, err := applicationService.ListUserApplications(userID)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(apps)
	})

	app.Post("/applications/:id/submit-hours", userCtx, func(c *fiber.Ctx) error {
		callerID := c.Locals("user_id").(string)

		var req struct {
			Hours float64 `json:"hours"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		application, err := applicationService.SubmitHours(c.Params("id"), callerID, req.Hours)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(application)
	})

	// 👮 Admin routes
	app.Get("/applications", userCtx, adminOnly, func(c *fiber.Ctx) error {
		apps, err := applicationService.ListApplications(
			models.ApplicationStatus(c.Query("status")),
			c.Query("opportunity_id"),
		)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(apps)
	})

	app.Put("/applications/:id/status", userCtx, adminOnly, func(c *fiber.Ctx) error {
		var req struct {
			Status         models.ApplicationStatus `json:"status" validate:"required"`
			Notes          string                   `json:"notes"`
			HoursCompleted *float64                 `json:"hours_completed"`
			CoinsAwarded   *int64                   `json:"coins_awarded"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if fields := utils.ValidateStruct(req); fields != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "fields": fields})
		}

		application, newBadges, err := applicationService.Transition(
			c.Params("id"), req.Status, req.Notes, req.HoursCompleted, req.CoinsAwarded)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(fiber.Map{"application": application, "new_badges": newBadges})
	})

	app.Post("/applications/:id/approve-hours", userCtx, adminOnly, func(c *fiber.Ctx) error {
		var req struct {
			HoursCompleted *float64 `json:"hours_completed"` // defaults to the submitted figure
			Feedback       string   `json:"feedback"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}

		application, newBadges, err := applicationService.ApproveHours(c.Params("id"), req.HoursCompleted, req.Feedback)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(fiber.Map{"application": application, "new_badges": newBadges})
	})

	app.Post("/applications/:id/reject-hours", userCtx, adminOnly, func(c *fiber.Ctx) error {
		var req struct {
			Feedback string `json:"feedback" validate:"required"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if fields := utils.ValidateStruct(req); fields != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "fields": fields})
		}

		application, err := applicationService.RejectHours(c.Params("id"), req.Feedback)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(application)
	})
}
