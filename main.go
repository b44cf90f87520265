package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"impact-tracking-system/handlers"
	"impact-tracking-system/middleware"
	"impact-tracking-system/models"
	"impact-tracking-system/services"
	"impact-tracking-system/utils"
	"impact-tracking-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 20 * 1024 * 1024, // 20MB — images are the largest upload
	})

	// 🔐 GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Service-Token",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Opportunity{},
		&models.Application{},
		&models.Badge{},
		&models.UserBadge{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	if err := utils.EnsureUploadDir(); err != nil {
		log.Fatal("failed to ensure upload dir:", err)
	}
	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	opportunityService := services.NewOpportunityService(db)
	badgeService := services.NewBadgeService(db)
	applicationService := services.NewApplicationService(db, badgeService)
	leaderboardService := services.NewLeaderboardService(db)
	userService := services.NewUserService(db)

	if err := badgeService.SeedDefaultBadges(); err != nil {
		log.Fatal("failed to seed badge catalog:", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Roster sync is optional — only runs when a directory service is
	// configured (standalone deployments rely on self-registration).
	if directoryURL := os.Getenv("DIRECTORY_SERVICE_URL"); directoryURL != "" {
		serviceToken := os.Getenv("SERVICE_TOKEN")
		rosterWorker := workers.NewRosterSyncWorker(db, directoryURL, "/api/v1/students", serviceToken)
		rosterWorker.Start(ctx)
	}

	auditor := workers.NewBalanceAuditor(db)
	go workers.PollBalances(ctx, auditor, 10*time.Minute)

	opportunityService.StartDeadlineScheduler()

	// ✅ Setup routes — enforced Gateway auth everywhere
	handlers.SetupOpportunityRoutes(app, opportunityService)
	handlers.SetupApplicationRoutes(app, applicationService)
	handlers.SetupLeaderboardRoutes(app, leaderboardService)
	handlers.SetupUserRoutes(app, userService, badgeService)

	app.Static("/uploads", "./uploads")

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Deadline scheduler running (every 1m)")
	log.Println("✅ Balance audit running (every 10m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
