// services/users.go
package services

import (
	"errors"
	"log"

	"impact-tracking-system/models"
	"impact-tracking-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserService struct {
	DB *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{DB: db}
}

// RegisterUser creates a local account for the authenticated identity.
// The gateway guarantees the X-User-ID header; we store it as the primary
// key so identity is stable across services.
func (s *UserService) RegisterUser(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		Email string `json:"email" validate:"required,email"`
		Name  string `json:"name" validate:"required,max=200"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if fields := utils.ValidateStruct(req); fields != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "fields": fields})
	}

	var count int64
	if err := s.DB.Model(&models.User{}).
		Where("id = ? OR email = ?", userID, req.Email).
		Count(&count).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Account already exists"})
	}

	user := &models.User{
		ID:    userID,
		Email: req.Email,
		Name:  req.Name,
		Role:  models.RoleStudent,
	}
	if _, err := uuid.Parse(userID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID in context"})
	}

	if err := s.DB.Create(user).Error; err != nil {
		log.Printf("DB Error creating user: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create account"})
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// GetMe returns the caller's profile with coin balance and badge count.
func (s *UserService) GetMe(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Account not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var badgeCount int64
	s.DB.Model(&models.UserBadge{}).Where("user_id = ?", userID).Count(&badgeCount)

	var completedCount int64
	s.DB.Model(&models.Application{}).
		Where("user_id = ? AND status = ?", userID, models.ApplicationStatusCompleted).
		Count(&completedCount)

	return c.JSON(fiber.Map{
		"id":                    user.ID,
		"email":                 user.Email,
		"name":                  user.Name,
		"role":                  user.Role,
		"coins":                 user.Coins,
		"anonymize_leaderboard": user.AnonymizeLeaderboard,
		"badge_count":           badgeCount,
		"completed_count":       completedCount,
		"created_at":            user.CreatedAt,
	})
}

// UpdatePreferences toggles leaderboard anonymity.
func (s *UserService) UpdatePreferences(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		AnonymizeLeaderboard *bool `json:"anonymize_leaderboard"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.AnonymizeLeaderboard == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "anonymize_leaderboard is required"})
	}

	res := s.DB.Model(&models.User{}).Where("id = ?", userID).
		Update("anonymize_leaderboard", *req.AnonymizeLeaderboard)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update preferences"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Account not found"})
	}
	return c.JSON(fiber.Map{"message": "Preferences updated", "anonymize_leaderboard": *req.AnonymizeLeaderboard})
}

// DeleteAccount removes the caller's account. Dependent applications and
// badge grants go with it in one transaction; the user row itself is
// soft-deleted so completed-hour history stays auditable.
func (s *UserService) DeleteAccount(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Account not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserBadge{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Application{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		log.Printf("DB Error deleting account %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete account"})
	}

	log.Printf("🗑️ Account deleted: %s", userID)
	return c.JSON(fiber.Map{"message": "Account deleted successfully"})
}
