// models/application.go
package models

import (
	"time"
)

type ApplicationStatus string

const (
	ApplicationStatusPending        ApplicationStatus = "pending"
	ApplicationStatusAccepted       ApplicationStatus = "accepted"
	ApplicationStatusHoursSubmitted ApplicationStatus = "hours_submitted"
	ApplicationStatusHoursApproved  ApplicationStatus = "hours_approved"
	ApplicationStatusCompleted      ApplicationStatus = "completed"
	ApplicationStatusRejected       ApplicationStatus = "rejected"
)

// Application links one student to one opportunity and tracks it through
// the status lifecycle. The composite unique index on (user_id,
// opportunity_id) backs up the pre-insert duplicate check at the store
// level.
type Application struct {
	ID            string `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	UserID        string `json:"user_id" gorm:"not null;index;uniqueIndex:idx_user_opportunity"`
	OpportunityID string `json:"opportunity_id" gorm:"not null;index;uniqueIndex:idx_user_opportunity"`

	Status ApplicationStatus `json:"status" gorm:"type:varchar(24);not null;default:'pending';index"`

	AppliedAt          time.Time  `json:"applied_at" gorm:"not null"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	HourSubmissionDate *time.Time `json:"hour_submission_date,omitempty"`

	// SubmittedHours is the student-reported figure for the current round;
	// HoursCompleted accumulates admin-confirmed hours across rounds.
	SubmittedHours float64 `json:"submitted_hours" gorm:"default:0"`
	HoursCompleted float64 `json:"hours_completed" gorm:"default:0"`

	// CoinsAwarded is the cumulative award for this application, never
	// exceeding the opportunity's max_coins ceiling.
	CoinsAwarded int64 `json:"coins_awarded" gorm:"default:0"`

	Notes         string `json:"notes" gorm:"type:text"`
	AdminFeedback string `json:"admin_feedback" gorm:"type:text"`

	User        User        `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Opportunity Opportunity `json:"opportunity,omitempty" gorm:"foreignKey:OpportunityID"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Terminal reports whether no further transitions are allowed.
func (a *Application) Terminal() bool {
	return a.Status == ApplicationStatusCompleted || a.Status == ApplicationStatusRejected
}
