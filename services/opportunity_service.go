// services/opportunity_service.go
package services

import (
	"errors"
	"path/filepath"
	"strings"

	"impact-tracking-system/models"
	"impact-tracking-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

type OpportunityService struct {
	DB *gorm.DB
}

func NewOpportunityService(db *gorm.DB) *OpportunityService {
	return &OpportunityService{DB: db}
}

var typeCaser = cases.Title(language.English)

// normalizeType canonicalizes free-text type labels ("beach cleanup" →
// "Beach Cleanup") so the analytics breakdown groups cleanly.
func normalizeType(t string) string {
	return typeCaser.String(strings.ToLower(strings.TrimSpace(t)))
}

// uniqueSlug derives a URL slug from the title, suffixing with a short id
// when the plain slug is taken.
func (s *OpportunityService) uniqueSlug(title string) string {
	base := slug.Make(title)
	if base == "" {
		base = "opportunity"
	}
	var count int64
	s.DB.Model(&models.Opportunity{}).Where("slug = ?", base).Count(&count)
	if count == 0 {
		return base
	}
	return base + "-" + uuid.NewString()[:8]
}

// CreateOpportunity creates a new opportunity (Admin only).
func (s *OpportunityService) CreateOpportunity(c *fiber.Ctx) error {
	var req struct {
		Title            string   `json:"title" validate:"required,max=200"`
		ShortDescription string   `json:"short_description" validate:"max=500"`
		LongDescription  string   `json:"long_description"`
		Type             string   `json:"type" validate:"required,max=100"`
		Duration         string   `json:"duration"`
		Skills           string   `json:"skills"`
		Location         string   `json:"location"`
		Schedule         string   `json:"schedule"`
		CoinsPerHour     float64  `json:"coins_per_hour" validate:"gte=0"`
		MaxCoins         float64  `json:"max_coins" validate:"gte=0"`
		Capacity         *int     `json:"capacity" validate:"omitempty,gt=0"`
		Deadline         *string  `json:"deadline"` // RFC3339
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if fields := utils.ValidateStruct(req); fields != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "fields": fields})
	}

	deadline, err := utils.ParseOptionalTime(req.Deadline)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid deadline, expected RFC3339"})
	}

	opp := &models.Opportunity{
		ID:               uuid.NewString(),
		Title:            req.Title,
		Slug:             s.uniqueSlug(req.Title),
		ShortDescription: req.ShortDescription,
		LongDescription:  req.LongDescription,
		Type:             normalizeType(req.Type),
		Duration:         req.Duration,
		Skills:           req.Skills,
		Location:         req.Location,
		Schedule:         req.Schedule,
		CoinsPerHour:     req.CoinsPerHour,
		MaxCoins:         req.MaxCoins,
		Capacity:         req.Capacity,
		Deadline:         deadline,
		Status:           models.OpportunityStatusOpen,
		CreatedBy:        c.Locals("user_id").(string),
	}

	if err := s.DB.Create(opp).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create opportunity"})
	}
	return c.Status(fiber.StatusCreated).JSON(opp)
}

// GetAllOpportunities lists opportunities with optional status/type/text
// filters. Public route — students browse here.
func (s *OpportunityService) GetAllOpportunities(c *fiber.Ctx) error {
	query := s.DB.Model(&models.Opportunity{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if oppType := c.Query("type"); oppType != "" {
		query = query.Where("type = ?", normalizeType(oppType))
	}
	if q := c.Query("q"); q != "" {
		term := "%" + strings.ToLower(strings.TrimSpace(q)) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(short_description) LIKE ?", term, term)
	}

	var opps []models.Opportunity
	if err := query.Order("created_at DESC").Find(&opps).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch opportunities"})
	}
	return c.JSON(opps)
}

// GetOpportunity fetches a single opportunity by id or slug.
func (s *OpportunityService) GetOpportunity(c *fiber.Ctx) error {
	idOrSlug := c.Params("id")

	var opp models.Opportunity
	query := s.DB
	if _, err := uuid.Parse(idOrSlug); err == nil {
		query = query.Where("id = ?", idOrSlug)
	} else {
		query = query.Where("slug = ?", idOrSlug)
	}
	if err := query.First(&opp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Opportunity not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(opp)
}

// UpdateOpportunity patches an existing opportunity (Admin only).
func (s *OpportunityService) UpdateOpportunity(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid opportunity ID"})
	}

	var existing models.Opportunity
	if err := s.DB.First(&existing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Opportunity not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var req struct {
		Title            *string  `json:"title"`
		ShortDescription *string  `json:"short_description"`
		LongDescription  *string  `json:"long_description"`
		Type             *string  `json:"type"`
		Duration         *string  `json:"duration"`
		Skills           *string  `json:"skills"`
		Location         *string  `json:"location"`
		Schedule         *string  `json:"schedule"`
		CoinsPerHour     *float64 `json:"coins_per_hour"`
		MaxCoins         *float64 `json:"max_coins"`
		Capacity         *int     `json:"capacity"`
		Deadline         *string  `json:"deadline"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.Title != nil {
		existing.Title = *req.Title
	}
	if req.ShortDescription != nil {
		existing.ShortDescription = *req.ShortDescription
	}
	if req.LongDescription != nil {
		existing.LongDescription = *req.LongDescription
	}
	if req.Type != nil {
		existing.Type = normalizeType(*req.Type)
	}
	if req.Duration != nil {
		existing.Duration = *req.Duration
	}
	if req.Skills != nil {
		existing.Skills = *req.Skills
	}
	if req.Location != nil {
		existing.Location = *req.Location
	}
	if req.Schedule != nil {
		existing.Schedule = *req.Schedule
	}
	if req.CoinsPerHour != nil {
		if *req.CoinsPerHour < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "coins_per_hour must be >= 0"})
		}
		existing.CoinsPerHour = *req.CoinsPerHour
	}
	if req.MaxCoins != nil {
		if *req.MaxCoins < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "max_coins must be >= 0"})
		}
		existing.MaxCoins = *req.MaxCoins
	}
	if req.Capacity != nil {
		existing.Capacity = req.Capacity
	}
	if req.Deadline != nil {
		deadline, err := utils.ParseOptionalTime(req.Deadline)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid deadline, expected RFC3339"})
		}
		existing.Deadline = deadline
	}

	if err := s.DB.Save(&existing).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update opportunity"})
	}
	return c.JSON(existing)
}

// UpdateOpportunityStatus sets the status (open/closed/filled) directly.
func (s *OpportunityService) UpdateOpportunityStatus(c *fiber.Ctx) error {
	id := c.Params("id")

	var req struct {
		Status models.OpportunityStatus `json:"status" validate:"required,oneof=open closed filled"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if fields := utils.ValidateStruct(req); fields != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Validation failed", "fields": fields})
	}

	res := s.DB.Model(&models.Opportunity{}).Where("id = ?", id).Update("status", req.Status)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update status"})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Opportunity not found"})
	}
	return c.JSON(fiber.Map{"message": "Status updated", "status": req.Status})
}

// DeleteOpportunity soft-deletes an opportunity (Admin only).
func (s *OpportunityService) DeleteOpportunity(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid opportunity ID"})
	}

	var opp models.Opportunity
	if err := s.DB.First(&opp, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Opportunity not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if err := s.DB.Delete(&opp).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to delete opportunity"})
	}
	return c.JSON(fiber.Map{"message": "Opportunity deleted successfully"})
}

// UploadOpportunityImage attaches an image to an opportunity. Goes to
// R2 when configured, otherwise saved under uploads/ and served statically.
func (s *OpportunityService) UploadOpportunityImage(c *fiber.Ctx) error {
	id := c.Params("id")

	var opp models.Opportunity
	if err := s.DB.First(&opp, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Opportunity not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	imageFile, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image is required"})
	}
	if imageFile.Size > 10*1024*1024 { // 10MB
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "image too large (max 10MB)"})
	}

	ext := filepath.Ext(imageFile.Filename)
	if ext == "" {
		ext = ".jpg"
	}
	key := "opportunities/" + uuid.NewString() + ext

	imageURL, err := utils.StoreImage(imageFile, key)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to store image"})
	}

	opp.ImageURL = imageURL
	if err := s.DB.Save(&opp).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update opportunity"})
	}
	return c.JSON(fiber.Map{"message": "Image uploaded", "image_url": imageURL})
}
