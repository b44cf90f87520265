// services/application_service.go
package services

import (
	"errors"
	"log"
	"time"

	"impact-tracking-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ApplicationService enforces the application lifecycle: admin-gated status
// transitions, student hour submission, and the hour-approval flow that
// computes coin awards and triggers badge checks.
type ApplicationService struct {
	DB     *gorm.DB
	Badges *BadgeService
}

func NewApplicationService(db *gorm.DB, badges *BadgeService) *ApplicationService {
	return &ApplicationService{DB: db, Badges: badges}
}

// CreateApplication inserts a pending application for (user, opportunity).
// Fails when a prior application for the pair exists or the opportunity is
// not open. When the opportunity has a capacity and this application
// reaches it, the opportunity flips to `filled`.
func (s *ApplicationService) CreateApplication(userID, opportunityID string) (*models.Application, error) {
	var opp models.Opportunity
	if err := s.DB.Where("id = ?", opportunityID).First(&opp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Duplicate check runs before the open check: re-applying after the
	// opportunity filled or closed still reads as a duplicate. The composite
	// unique index on (user_id, opportunity_id) is the backstop if two
	// requests race.
	var count int64
	if err := s.DB.Model(&models.Application{}).
		Where("user_id = ? AND opportunity_id = ?", userID, opportunityID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateApplication
	}

	if !opp.AcceptsApplications() {
		return nil, ErrOpportunityClosed
	}

	app := &models.Application{
		UserID:        userID,
		OpportunityID: opportunityID,
		Status:        models.ApplicationStatusPending,
		AppliedAt:     time.Now(),
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(app).Error; err != nil {
			return err
		}

		if opp.Capacity != nil {
			var applicants int64
			if err := tx.Model(&models.Application{}).
				Where("opportunity_id = ?", opportunityID).
				Count(&applicants).Error; err != nil {
				return err
			}
			if applicants >= int64(*opp.Capacity) {
				if err := tx.Model(&models.Opportunity{}).
					Where("id = ?", opportunityID).
					Update("status", models.OpportunityStatusFilled).Error; err != nil {
					return err
				}
				log.Printf("📋 Opportunity %s reached capacity (%d), marked filled", opportunityID, *opp.Capacity)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// GetApplication loads an application with its user and opportunity.
func (s *ApplicationService) GetApplication(id string) (*models.Application, error) {
	var app models.Application
	err := s.DB.Preload("User").Preload("Opportunity").
		Where("id = ?", id).First(&app).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &app, nil
}

// ListApplications returns applications filtered by status and/or
// opportunity, newest first. Empty filters match everything.
func (s *ApplicationService) ListApplications(status models.ApplicationStatus, opportunityID string) ([]models.Application, error) {
	query := s.DB.Preload("User").Preload("Opportunity")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if opportunityID != "" {
		query = query.Where("opportunity_id = ?", opportunityID)
	}

	var apps []models.Application
	err := query.Order("applied_at DESC").Find(&apps).Error
	return apps, err
}

// ListUserApplications returns a student's own applications, newest first.
func (s *ApplicationService) ListUserApplications(userID string) ([]models.Application, error) {
	var apps []models.Application
	err := s.DB.Preload("Opportunity").
		Where("user_id = ?", userID).
		Order("applied_at DESC").
		Find(&apps).Error
	return apps, err
}

// Transition applies a generic admin-driven status change. Marking an
// application completed stamps completed_at and, when nothing has been
// awarded yet, computes and credits the coin award in the same
// transaction so the final figure lands atomically with the status write.
// Returns the updated application plus any badges granted by the award.
func (s *ApplicationService) Transition(id string, to models.ApplicationStatus, notes string, hoursCompleted *float64, requestedCoins *int64) (*models.Application, []models.Badge, error) {
	if !ValidStatus(to) {
		return nil, nil, ErrInvalidTransition
	}

	app, err := s.GetApplication(id)
	if err != nil {
		return nil, nil, err
	}
	if !CanTransition(app.Status, to) {
		return nil, nil, ErrInvalidTransition
	}

	awardDelta := int64(0)
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		app.Status = to
		if notes != "" {
			app.Notes = notes
		}

		if to == models.ApplicationStatusCompleted {
			now := time.Now()
			app.CompletedAt = &now

			if hoursCompleted != nil && *hoursCompleted > 0 {
				app.HoursCompleted = *hoursCompleted
			}

			// Award only if the approval flow hasn't already; either way
			// the cumulative award stays within the opportunity ceiling.
			if app.CoinsAwarded == 0 {
				coins := CoinsForHours(app.HoursCompleted, app.Opportunity.CoinsPerHour, app.Opportunity.MaxCoins)
				if requestedCoins != nil {
					coins = clampRequestedCoins(*requestedCoins, app.Opportunity.MaxCoins)
				}
				app.CoinsAwarded = coins
				awardDelta = coins
			}
		}

		if err := tx.Model(&models.Application{}).Where("id = ?", app.ID).
			Updates(map[string]interface{}{
				"status":          app.Status,
				"notes":           app.Notes,
				"completed_at":    app.CompletedAt,
				"hours_completed": app.HoursCompleted,
				"coins_awarded":   app.CoinsAwarded,
			}).Error; err != nil {
			return err
		}

		if awardDelta > 0 {
			if _, err := creditCoins(tx, app.UserID, awardDelta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// Badge check re-reads the post-increment balance; it must stay after
	// the credit.
	var newBadges []models.Badge
	if awardDelta > 0 {
		newBadges, err = s.Badges.AutoAwardBadges(app.UserID)
		if err != nil {
			log.Printf("⚠️ Badge check failed for %s: %v", app.UserID, err)
		}
		log.Printf("💰 Application %s completed: %d coins → %s", app.ID, awardDelta, app.UserID)
	}
	return app, newBadges, nil
}

// SubmitHours records student-reported hours and moves the application to
// hours_submitted. The caller must be the owning student. Resubmission
// after an approval round is allowed.
func (s *ApplicationService) SubmitHours(id, callerID string, hours float64) (*models.Application, error) {
	app, err := s.GetApplication(id)
	if err != nil {
		return nil, err
	}
	if app.UserID != callerID {
		return nil, ErrForbidden
	}
	if hours <= 0 {
		return nil, ErrInvalidHours
	}
	if !CanTransition(app.Status, models.ApplicationStatusHoursSubmitted) {
		return nil, ErrInvalidTransition
	}

	now := time.Now()
	app.Status = models.ApplicationStatusHoursSubmitted
	app.SubmittedHours = hours
	app.HourSubmissionDate = &now

	if err := s.DB.Model(&models.Application{}).Where("id = ?", app.ID).
		Updates(map[string]interface{}{
			"status":               app.Status,
			"submitted_hours":      app.SubmittedHours,
			"hour_submission_date": app.HourSubmissionDate,
		}).Error; err != nil {
		return nil, err
	}
	return app, nil
}

// ApproveHours confirms a round of submitted hours, computes the
// server-side reward (cumulative, capped at the opportunity's max_coins),
// credits the difference to the student's balance and runs the badge
// check. The application stays at hours_approved so further hours can be
// submitted; completion is a separate explicit transition.
func (s *ApplicationService) ApproveHours(id string, hoursConfirmed *float64, feedback string) (*models.Application, []models.Badge, error) {
	app, err := s.GetApplication(id)
	if err != nil {
		return nil, nil, err
	}
	if !CanTransition(app.Status, models.ApplicationStatusHoursApproved) {
		return nil, nil, ErrInvalidTransition
	}

	confirmed := app.SubmittedHours
	if hoursConfirmed != nil {
		if *hoursConfirmed <= 0 {
			return nil, nil, ErrInvalidHours
		}
		confirmed = *hoursConfirmed
	}

	totalHours := app.HoursCompleted + confirmed
	cappedTotal := CoinsForHours(totalHours, app.Opportunity.CoinsPerHour, app.Opportunity.MaxCoins)
	delta := cappedTotal - app.CoinsAwarded
	if delta < 0 {
		delta = 0
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		app.Status = models.ApplicationStatusHoursApproved
		app.HoursCompleted = totalHours
		app.CoinsAwarded = cappedTotal
		if feedback != "" {
			app.AdminFeedback = feedback
		}

		if err := tx.Model(&models.Application{}).Where("id = ?", app.ID).
			Updates(map[string]interface{}{
				"status":          app.Status,
				"hours_completed": app.HoursCompleted,
				"coins_awarded":   app.CoinsAwarded,
				"admin_feedback":  app.AdminFeedback,
			}).Error; err != nil {
			return err
		}

		if delta > 0 {
			balance, err := creditCoins(tx, app.UserID, delta)
			if err != nil {
				return err
			}
			log.Printf("💰 Hours approved: %s +%d coins (balance=%d, total hours=%.1f)",
				app.UserID, delta, balance, totalHours)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var newBadges []models.Badge
	if delta > 0 {
		newBadges, err = s.Badges.AutoAwardBadges(app.UserID)
		if err != nil {
			log.Printf("⚠️ Badge check failed for %s: %v", app.UserID, err)
		}
	}
	return app, newBadges, nil
}

// RejectHours sends a submitted round back to the student with feedback.
// No coins are granted and the submitted-hour data is kept so the student
// can resubmit.
func (s *ApplicationService) RejectHours(id, feedback string) (*models.Application, error) {
	app, err := s.GetApplication(id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(app.Status, models.ApplicationStatusAccepted) {
		return nil, ErrInvalidTransition
	}

	app.Status = models.ApplicationStatusAccepted
	app.AdminFeedback = feedback

	if err := s.DB.Model(&models.Application{}).Where("id = ?", app.ID).
		Updates(map[string]interface{}{
			"status":         app.Status,
			"admin_feedback": app.AdminFeedback,
		}).Error; err != nil {
		return nil, err
	}
	return app, nil
}

// creditCoins adds delta to the user's balance with a single
// UPDATE ... RETURNING and returns the new balance. A relative update keeps
// the read-modify-write window at the store, not in application code.
func creditCoins(tx *gorm.DB, userID string, delta int64) (int64, error) {
	var user models.User
	res := tx.Model(&user).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "coins"}}}).
		Where("id = ?", userID).
		UpdateColumn("coins", gorm.Expr("coins + ?", delta))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrNotFound
	}
	return user.Coins, nil
}

// clampRequestedCoins bounds an admin-supplied award by the opportunity
// ceiling; requested figures are never trusted as-is.
func clampRequestedCoins(requested int64, maxCoins float64) int64 {
	if requested < 0 {
		return 0
	}
	ceiling := int64(maxCoins)
	if maxCoins <= 0 {
		ceiling = int64(DefaultMaxCoins)
	}
	if requested > ceiling {
		return ceiling
	}
	return requested
}
