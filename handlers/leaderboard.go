// handlers/leaderboard.go
package handlers

import (
	"strconv"

	"impact-tracking-system/middleware"
	"impact-tracking-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLeaderboardRoutes(app *fiber.App, leaderboardService *services.LeaderboardService) {
	// 🔓 Public — the leaderboard is visible to everyone on the platform
	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "25"))
		timeframe := c.Query("timeframe", services.TimeframeAll)

		entries, err := leaderboardService.Leaderboard(limit, timeframe)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to build leaderboard",
			})
		}
		return c.JSON(fiber.Map{
			"timeframe": timeframe,
			"entries":   entries,
		})
	})

	// 👮 Admin-only analytics snapshot; auth attached per route so the gate
	// stays off the public leaderboard
	app.Get("/analytics", middleware.UserContextMiddleware(), middleware.RequireAdmin(), func(c *fiber.Ctx) error {
		summary, err := leaderboardService.Analytics()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to compute analytics",
			})
		}
		return c.JSON(summary)
	})
}
