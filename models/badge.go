package models

import (
	"time"
)

// Badge: static catalog entry. Seeded at startup, extended by admins.
// A badge is earned once a user's coin balance crosses CoinsRequired.
type Badge struct {
	ID            string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Code          string `gorm:"uniqueIndex;not null" json:"code"` // e.g., "FIRST_COINS", "CENTURION"
	Name          string `gorm:"not null" json:"name"`
	Description   string `json:"description"`
	IconURL       string `gorm:"type:text" json:"icon_url"`
	Rarity        string `gorm:"type:varchar(16);default:'common'" json:"rarity"` // common, rare, epic, legendary
	CoinsRequired int64  `gorm:"not null;index" json:"coins_required"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// UserBadge: awarded instance. The composite unique index closes the
// check-then-insert race on concurrent awards.
type UserBadge struct {
	ID        string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID    string    `gorm:"not null;index;uniqueIndex:idx_user_badge" json:"user_id"`
	BadgeID   string    `gorm:"not null;index;uniqueIndex:idx_user_badge" json:"badge_id"`
	AwardedAt time.Time `gorm:"autoCreateTime" json:"awarded_at"`

	Badge Badge `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
}

// DefaultBadges is the seed catalog, inserted at startup when missing.
var DefaultBadges = []Badge{
	{
		Code:          "FIRST_STEPS",
		Name:          "First Steps",
		Description:   "Earned your first coins volunteering",
		Rarity:        "common",
		CoinsRequired: 1,
	},
	{
		Code:          "HELPING_HAND",
		Name:          "Helping Hand",
		Description:   "Reached 50 coins",
		Rarity:        "common",
		CoinsRequired: 50,
	},
	{
		Code:          "CENTURION",
		Name:          "Centurion",
		Description:   "Reached 100 coins",
		Rarity:        "rare",
		CoinsRequired: 100,
	},
	{
		Code:          "COMMUNITY_PILLAR",
		Name:          "Community Pillar",
		Description:   "Reached 500 coins",
		Rarity:        "epic",
		CoinsRequired: 500,
	},
	{
		Code:          "CHANGEMAKER",
		Name:          "Changemaker",
		Description:   "Reached 1000 coins",
		Rarity:        "legendary",
		CoinsRequired: 1000,
	},
}
