package services

import (
	"log"

	"impact-tracking-system/models"

	"gorm.io/gorm"
)

type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// SeedDefaultBadges inserts the default catalog entries that don't exist
// yet (matched by code). Safe to run on every startup.
func (s *BadgeService) SeedDefaultBadges() error {
	for _, b := range models.DefaultBadges {
		var count int64
		if err := s.DB.Model(&models.Badge{}).Where("code = ?", b.Code).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			badge := b
			if err := s.DB.Create(&badge).Error; err != nil {
				return err
			}
			log.Printf("🎖️ Seeded badge: %s (%d coins)", badge.Name, badge.CoinsRequired)
		}
	}
	return nil
}

// AutoAwardBadges grants every catalog badge the user now qualifies for and
// returns the newly granted ones. Balances never decrease, so grants are
// monotonic and the whole pass is idempotent.
func (s *BadgeService) AutoAwardBadges(userID string) ([]models.Badge, error) {
	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var catalog []models.Badge
	if err := s.DB.Order("coins_required ASC").Find(&catalog).Error; err != nil {
		return nil, err
	}

	var heldBadges []models.UserBadge
	if err := s.DB.Where("user_id = ?", userID).Find(&heldBadges).Error; err != nil {
		return nil, err
	}
	held := make(map[string]bool, len(heldBadges))
	for _, hb := range heldBadges {
		held[hb.BadgeID] = true
	}

	var awarded []models.Badge
	for _, badge := range newlyEarnedBadges(catalog, held, user.Coins) {
		// Re-check right before insert to keep duplicate grants out even
		// when two requests race; the unique index is the final backstop.
		var count int64
		s.DB.Model(&models.UserBadge{}).
			Where("user_id = ? AND badge_id = ?", userID, badge.ID).
			Count(&count)
		if count > 0 {
			continue
		}

		userBadge := models.UserBadge{
			UserID:  userID,
			BadgeID: badge.ID,
		}
		if err := s.DB.Create(&userBadge).Error; err != nil {
			return awarded, err
		}
		awarded = append(awarded, badge)
		log.Printf("🎖️ Badge awarded: %s → %s", badge.Name, userID)
	}

	return awarded, nil
}

// newlyEarnedBadges selects catalog badges not already held whose threshold
// the balance meets. Catalog order (ascending by coins_required) is
// preserved in the result.
func newlyEarnedBadges(catalog []models.Badge, held map[string]bool, balance int64) []models.Badge {
	var earned []models.Badge
	for _, b := range catalog {
		if held[b.ID] {
			continue
		}
		if b.CoinsRequired <= balance {
			earned = append(earned, b)
		}
	}
	return earned
}

// UserBadges returns the user's earned badges with catalog metadata.
func (s *BadgeService) UserBadges(userID string) ([]models.UserBadge, error) {
	var badges []models.UserBadge
	err := s.DB.Preload("Badge").
		Where("user_id = ?", userID).
		Order("awarded_at DESC").
		Find(&badges).Error
	return badges, err
}
