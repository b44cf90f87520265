// models/opportunity.go
package models

import (
	"time"
)

type OpportunityStatus string

const (
	OpportunityStatusOpen   OpportunityStatus = "open"
	OpportunityStatusClosed OpportunityStatus = "closed"
	OpportunityStatusFilled OpportunityStatus = "filled"
)

// Opportunity is a volunteer activity students can apply to. Only `open`
// opportunities accept new applications.
type Opportunity struct {
	ID               string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Title            string `json:"title" gorm:"not null"`
	Slug             string `json:"slug" gorm:"uniqueIndex;not null"`
	ShortDescription string `json:"short_description"`
	LongDescription  string `json:"long_description"`
	Type             string `json:"type" gorm:"index"` // e.g., "Environment", "Tutoring"
	Duration         string `json:"duration"`          // e.g., "2h weekly"
	Skills           string `json:"skills"`
	Location         string `json:"location"`
	Schedule         string `json:"schedule"`

	// 🖼️ Media
	ImageURL string `json:"image_url" gorm:"type:text"`

	// 💰 Reward configuration. Zero values fall back to the documented
	// defaults in the reward calculator (10 coins/hour, 100 coins max).
	CoinsPerHour float64 `json:"coins_per_hour" gorm:"default:0"`
	MaxCoins     float64 `json:"max_coins" gorm:"default:0"`

	// Optional applicant ceiling. When reached, status flips to `filled`.
	Capacity *int `json:"capacity,omitempty"`

	// Optional deadline. The scheduler auto-closes open opportunities
	// whose deadline has passed.
	Deadline *time.Time `json:"deadline,omitempty"`

	Status    OpportunityStatus `json:"status" gorm:"type:varchar(16);not null;default:'open'"`
	CreatedBy string            `json:"created_by" gorm:"index"` // owning admin

	Timestamps
}

// AcceptsApplications reports whether new applications may be created.
func (o *Opportunity) AcceptsApplications() bool {
	return o.Status == OpportunityStatusOpen
}
