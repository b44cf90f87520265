// handlers/user.go
package handlers

import (
	"path/filepath"
	"strconv"

	"impact-tracking-system/middleware"
	"impact-tracking-system/models"
	"impact-tracking-system/services"
	"impact-tracking-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func SetupUserRoutes(app *fiber.App, userService *services.UserService, badgeService *services.BadgeService) {
	// 🔓 Public badge catalog
	app.Get("/badges", func(c *fiber.Ctx) error {
		var catalog []models.Badge
		if err := badgeService.DB.Order("coins_required ASC").Find(&catalog).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch badges"})
		}
		return c.JSON(catalog)
	})

	// 🔐 Secured routes — require user context. Per-route middleware: a
	// group on "/" would gate every route registered after this setup.
	userCtx := middleware.UserContextMiddleware()

	app.Post("/users/register", userCtx, userService.RegisterUser)
	app.Get("/users/me", userCtx, userService.GetMe)
	app.Patch("/users/me/preferences", userCtx, userService.UpdatePreferences)
	app.Delete("/users/me", userCtx, userService.DeleteAccount)

	app.Get("/users/me/badges", userCtx, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		userBadges, err := badgeService.UserBadges(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch badges"})
		}

		response := make([]fiber.Map, 0, len(userBadges))
		for _, ub := range userBadges {
			response = append(response, fiber.Map{
				"id":             ub.ID,
				"badge_id":       ub.Badge.ID,
				"code":           ub.Badge.Code,
				"name":           ub.Badge.Name,
				"description":    ub.Badge.Description,
				"icon_url":       ub.Badge.IconURL,
				"rarity":         ub.Badge.Rarity,
				"coins_required": ub.Badge.CoinsRequired,
				"awarded_at":     ub.AwardedAt,
			})
		}
		return c.JSON(response)
	})

	// 👮 Admin: extend the badge catalog
	app.Post("/badges", userCtx, middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		coinsRequired, err := strconv.ParseInt(c.FormValue("coins_required", "0"), 10, 64)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "coins_required must be a number"})
		}

		badge := models.Badge{
			ID:            uuid.NewString(),
			Code:          c.FormValue("code"),
			Name:          c.FormValue("name"),
			Description:   c.FormValue("description"),
			Rarity:        c.FormValue("rarity", "common"),
			CoinsRequired: coinsRequired,
		}
		if badge.Code == "" || badge.Name == "" || badge.CoinsRequired <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "code, name and positive coins_required are required"})
		}

		if iconFile, err := c.FormFile("icon"); err == nil && iconFile.Size > 0 {
			ext := filepath.Ext(iconFile.Filename)
			if ext == "" {
				ext = ".png"
			}
			iconURL, err := utils.StoreImage(iconFile, "badges/"+uuid.NewString()+ext)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store badge icon"})
			}
			badge.IconURL = iconURL
		}

		if err := badgeService.DB.Create(&badge).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create badge"})
		}
		return c.Status(fiber.StatusCreated).JSON(badge)
	})
}
