package models

import (
	"time"

	"gorm.io/gorm"
)

// Role determines what a user is allowed to do. Role checks are the sole
// authorization rule in this service — ownership is only checked for
// student-facing application actions.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// User is the local account record. Coins are a denormalized balance,
// credited only by the hour-approval flow and never decremented.
type User struct {
	ID    string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Email string `gorm:"uniqueIndex;not null" json:"email"`
	Name  string `gorm:"not null" json:"name"`
	Role  Role   `gorm:"type:varchar(16);not null;default:'student'" json:"role"`

	// ExternalID links accounts mirrored from the campus directory service.
	// Null for users who registered directly.
	ExternalID *string `gorm:"uniqueIndex" json:"external_id,omitempty"`

	Coins                int64 `gorm:"not null;default:0" json:"coins"`
	AnonymizeLeaderboard bool  `gorm:"not null;default:false" json:"anonymize_leaderboard"`

	Timestamps
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
