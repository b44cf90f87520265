package services

import (
	"os"
	"testing"
	"time"

	"impact-tracking-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store-backed tests run against a throwaway Postgres set via
// TEST_DATABASE_URL and are skipped otherwise.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping store-backed tests")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Opportunity{},
		&models.Application{},
		&models.Badge{},
		&models.UserBadge{},
	))

	require.NoError(t, db.Exec("TRUNCATE user_badges, applications, badges, opportunities, users CASCADE").Error)
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name string, coins int64) *models.User {
	t.Helper()
	user := &models.User{
		ID:    uuid.NewString(),
		Email: name + "-" + uuid.NewString()[:8] + "@campus.edu",
		Name:  name,
		Role:  models.RoleStudent,
		Coins: coins,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestOpportunity(t *testing.T, db *gorm.DB, status models.OpportunityStatus, rate, max float64) *models.Opportunity {
	t.Helper()
	opp := &models.Opportunity{
		ID:           uuid.NewString(),
		Title:        "Beach Cleanup",
		Slug:         "beach-cleanup-" + uuid.NewString()[:8],
		Type:         "Environment",
		Status:       status,
		CoinsPerHour: rate,
		MaxCoins:     max,
	}
	require.NoError(t, db.Create(opp).Error)
	return opp
}

func TestCreateApplication_DuplicateFails(t *testing.T) {
	db := setupTestDB(t)
	svc := NewApplicationService(db, NewBadgeService(db))

	user := createTestUser(t, db, "ada", 0)
	opp := createTestOpportunity(t, db, models.OpportunityStatusOpen, 10, 100)

	first, err := svc.CreateApplication(user.ID, opp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusPending, first.Status)
	assert.False(t, first.AppliedAt.IsZero())

	// Second application fails regardless of the first one's status
	_, err = svc.CreateApplication(user.ID, opp.ID)
	assert.ErrorIs(t, err, ErrDuplicateApplication)

	_, _, err = svc.Transition(first.ID, models.ApplicationStatusAccepted, "", nil, nil)
	require.NoError(t, err)
	_, err = svc.CreateApplication(user.ID, opp.ID)
	assert.ErrorIs(t, err, ErrDuplicateApplication)

	// Re-applying after the opportunity closed is still a duplicate, not a
	// closed-opportunity error
	require.NoError(t, db.Model(&models.Opportunity{}).Where("id = ?", opp.ID).
		Update("status", models.OpportunityStatusClosed).Error)
	_, err = svc.CreateApplication(user.ID, opp.ID)
	assert.ErrorIs(t, err, ErrDuplicateApplication)
}

func TestCreateApplication_NotOpenFails(t *testing.T) {
	db := setupTestDB(t)
	svc := NewApplicationService(db, NewBadgeService(db))
	user := createTestUser(t, db, "bob", 0)

	for _, status := range []models.OpportunityStatus{
		models.OpportunityStatusClosed,
		models.OpportunityStatusFilled,
	} {
		opp := createTestOpportunity(t, db, status, 10, 100)
		_, err := svc.CreateApplication(user.ID, opp.ID)
		assert.ErrorIs(t, err, ErrOpportunityClosed, "status=%s", status)
	}
}

func TestCreateApplication_CapacityFillsOpportunity(t *testing.T) {
	db := setupTestDB(t)
	svc := NewApplicationService(db, NewBadgeService(db))

	capacity := 1
	opp := createTestOpportunity(t, db, models.OpportunityStatusOpen, 10, 100)
	require.NoError(t, db.Model(opp).Update("capacity", &capacity).Error)

	first := createTestUser(t, db, "carol", 0)
	_, err := svc.CreateApplication(first.ID, opp.ID)
	require.NoError(t, err)

	var reloaded models.Opportunity
	require.NoError(t, db.First(&reloaded, "id = ?", opp.ID).Error)
	assert.Equal(t, models.OpportunityStatusFilled, reloaded.Status)

	second := createTestUser(t, db, "dave", 0)
	_, err = svc.CreateApplication(second.ID, opp.ID)
	assert.ErrorIs(t, err, ErrOpportunityClosed)
}

func TestSubmitHours_Validation(t *testing.T) {
	db := setupTestDB(t)
	svc := NewApplicationService(db, NewBadgeService(db))

	user := createTestUser(t, db, "erin", 0)
	other := createTestUser(t, db, "frank", 0)
	opp := createTestOpportunity(t, db, models.OpportunityStatusOpen, 10, 100)

	app, err := svc.CreateApplication(user.ID, opp.ID)
	require.NoError(t, err)

	// Hours can only go in once the application was accepted
	_, err = svc.SubmitHours(app.ID, user.ID, 5)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = svc.Transition(app.ID, models.ApplicationStatusAccepted, "", nil, nil)
	require.NoError(t, err)

	_, err = svc.SubmitHours(app.ID, other.ID, 5)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.SubmitHours(app.ID, user.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidHours)
	_, err = svc.SubmitHours(app.ID, user.ID, -2)
	assert.ErrorIs(t, err, ErrInvalidHours)

	updated, err := svc.SubmitHours(app.ID, user.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusHoursSubmitted, updated.Status)
	assert.Equal(t, 8.0, updated.SubmittedHours)
	require.NotNil(t, updated.HourSubmissionDate)
}

func TestApproveHours_AwardsAndCaps(t *testing.T) {
	db := setupTestDB(t)
	svc := NewApplicationService(db, NewBadgeService(db))

	user := createTestUser(t, db, "grace", 0)
	opp := createTestOpportunity(t, db, models.OpportunityStatusOpen, 10, 100)

	app, err := svc.CreateApplication(user.ID, opp.ID)
	require.NoError(t, err)
	_, _, err = svc.Transition(app.ID, models.ApplicationStatusAccepted, "", nil, nil)
	require.NoError(t, err)

	// Round one: 8 hours at 10/hour → 80 coins
	_, err = svc.SubmitHours(app.ID, user.ID, 8)
	require.NoError(t, err)
	approved, _, err := svc.ApproveHours(app.ID, nil, "good work")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusHoursApproved, approved.Status)
	assert.Equal(t, int64(80), approved.CoinsAwarded)

	var balance models.User
	require.NoError(t, db.First(&balance, "id = ?", user.ID).Error)
	assert.Equal(t, int64(80), balance.Coins)

	// Round two: 7 more hours would be 150 total → capped at 100, delta 20
	_, err = svc.SubmitHours(app.ID, user.ID, 7)
	require.NoError(t, err)
	approved, _, err = svc.ApproveHours(app.ID, nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(100), approved.CoinsAwarded)
	assert.Equal(t, 15.0, approved.HoursCompleted)

	require.NoError(t, db.First(&balance, "id = ?", user.ID).Error)
	assert.Equal(t, int64(100), balance.Coins)
}

func TestTransition_CompleteAfterApprovalAwardsOnce(t *testing.T) {
	db := setupTestDB(t)
	svc := NewApplicationService(db, NewBadgeService(db))

	user := createTestUser(t, db, "heidi", 0)
	opp := createTestOpportunity(t, db, models.OpportunityStatusOpen, 10, 100)

	app, err := svc.CreateApplication(user.ID, opp.ID)
	require.NoError(t, err)
	_, _, err = svc.Transition(app.ID, models.ApplicationStatusAccepted, "", nil, nil)
	require.NoError(t, err)
	_, err = svc.SubmitHours(app.ID, user.ID, 8)
	require.NoError(t, err)
	_, _, err = svc.ApproveHours(app.ID, nil, "")
	require.NoError(t, err)

	completed, _, err := svc.Transition(app.ID, models.ApplicationStatusCompleted, "done", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	assert.Equal(t, int64(80), completed.CoinsAwarded)

	// Completing after approval must not double-credit
	var balance models.User
	require.NoError(t, db.First(&balance, "id = ?", user.ID).Error)
	assert.Equal(t, int64(80), balance.Coins)

	// Terminal: nothing moves after completion
	_, _, err = svc.Transition(app.ID, models.ApplicationStatusAccepted, "", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransition_CompleteAwardsWhenApprovalCreditedNothing(t *testing.T) {
	db := setupTestDB(t)
	svc := NewApplicationService(db, NewBadgeService(db))

	user := createTestUser(t, db, "leo", 0)
	opp := createTestOpportunity(t, db, models.OpportunityStatusOpen, 10, 100)

	app, err := svc.CreateApplication(user.ID, opp.ID)
	require.NoError(t, err)
	_, _, err = svc.Transition(app.ID, models.ApplicationStatusAccepted, "", nil, nil)
	require.NoError(t, err)

	// 0.04 hours at 10/hour rounds to zero coins, so approval credits nothing
	_, err = svc.SubmitHours(app.ID, user.ID, 0.04)
	require.NoError(t, err)
	approved, _, err := svc.ApproveHours(app.ID, nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), approved.CoinsAwarded)

	// Completion may then award; the admin-supplied figure is still capped
	// at the opportunity ceiling
	requested := int64(250)
	completed, _, err := svc.Transition(app.ID, models.ApplicationStatusCompleted, "", nil, &requested)
	require.NoError(t, err)
	assert.Equal(t, int64(100), completed.CoinsAwarded)

	var balance models.User
	require.NoError(t, db.First(&balance, "id = ?", user.ID).Error)
	assert.Equal(t, int64(100), balance.Coins)
}

func TestRejectHours_KeepsSubmissionData(t *testing.T) {
	db := setupTestDB(t)
	svc := NewApplicationService(db, NewBadgeService(db))

	user := createTestUser(t, db, "ivan", 0)
	opp := createTestOpportunity(t, db, models.OpportunityStatusOpen, 10, 100)

	app, err := svc.CreateApplication(user.ID, opp.ID)
	require.NoError(t, err)
	_, _, err = svc.Transition(app.ID, models.ApplicationStatusAccepted, "", nil, nil)
	require.NoError(t, err)
	_, err = svc.SubmitHours(app.ID, user.ID, 6)
	require.NoError(t, err)

	rejected, err := svc.RejectHours(app.ID, "timesheet doesn't match")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusAccepted, rejected.Status)
	assert.Equal(t, "timesheet doesn't match", rejected.AdminFeedback)
	assert.Equal(t, 6.0, rejected.SubmittedHours)
	assert.Equal(t, int64(0), rejected.CoinsAwarded)

	var balance models.User
	require.NoError(t, db.First(&balance, "id = ?", user.ID).Error)
	assert.Equal(t, int64(0), balance.Coins)

	// Student resubmits after the rejection
	resubmitted, err := svc.SubmitHours(app.ID, user.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationStatusHoursSubmitted, resubmitted.Status)
}

func TestAutoAwardBadges_GrantsOnceAndStaysIdempotent(t *testing.T) {
	db := setupTestDB(t)
	badgeSvc := NewBadgeService(db)

	for _, b := range []models.Badge{
		{ID: uuid.NewString(), Code: "FIRST_STEPS", Name: "First Steps", CoinsRequired: 1},
		{ID: uuid.NewString(), Code: "HELPING_HAND", Name: "Helping Hand", CoinsRequired: 50},
		{ID: uuid.NewString(), Code: "CENTURION", Name: "Centurion", CoinsRequired: 100},
	} {
		badge := b
		require.NoError(t, db.Create(&badge).Error)
	}

	user := createTestUser(t, db, "judy", 80)

	awarded, err := badgeSvc.AutoAwardBadges(user.ID)
	require.NoError(t, err)
	require.Len(t, awarded, 2)
	assert.Equal(t, "First Steps", awarded[0].Name)
	assert.Equal(t, "Helping Hand", awarded[1].Name)

	// Second pass with no balance change grants nothing
	again, err := badgeSvc.AutoAwardBadges(user.ID)
	require.NoError(t, err)
	assert.Empty(t, again)

	// Crossing the next threshold grants exactly the new badge
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("coins", 120).Error)
	third, err := badgeSvc.AutoAwardBadges(user.ID)
	require.NoError(t, err)
	require.Len(t, third, 1)
	assert.Equal(t, "Centurion", third[0].Name)
}

func TestLeaderboard_OrderingAndAnonymity(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLeaderboardService(db)

	rich := createTestUser(t, db, "rich", 200)
	tiedBusy := createTestUser(t, db, "tied-busy", 100)
	tiedIdle := createTestUser(t, db, "tied-idle", 100)
	hidden := createTestUser(t, db, "hidden", 50)
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", hidden.ID).
		Update("anonymize_leaderboard", true).Error)

	// Two completed applications for the busy tied user, on distinct
	// opportunities to respect the (user, opportunity) unique index.
	now := time.Now()
	for i := 0; i < 2; i++ {
		opp := createTestOpportunity(t, db, models.OpportunityStatusOpen, 10, 100)
		app := models.Application{
			ID:            uuid.NewString(),
			UserID:        tiedBusy.ID,
			OpportunityID: opp.ID,
			Status:        models.ApplicationStatusCompleted,
			AppliedAt:     now.AddDate(0, 0, -i-1),
			CompletedAt:   &now,
		}
		require.NoError(t, db.Create(&app).Error)
	}

	entries, err := svc.Leaderboard(10, TimeframeAll)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, rich.ID, entries[0].UserID)
	assert.Equal(t, 1, entries[0].Rank)

	// Equal coins: more completed applications ranks first
	assert.Equal(t, tiedBusy.ID, entries[1].UserID)
	assert.Equal(t, int64(2), entries[1].CompletedCount)
	assert.Equal(t, tiedIdle.ID, entries[2].UserID)

	assert.Equal(t, "Anonymous", entries[3].Name)
	assert.True(t, entries[3].Anonymous)
	assert.Equal(t, 4, entries[3].Rank)
}

func TestAnalytics_Snapshot(t *testing.T) {
	db := setupTestDB(t)
	svc := NewLeaderboardService(db)

	user := createTestUser(t, db, "kim", 0)
	second := createTestUser(t, db, "lee", 0)
	opp := createTestOpportunity(t, db, models.OpportunityStatusOpen, 10, 100)
	other := createTestOpportunity(t, db, models.OpportunityStatusOpen, 10, 100)
	require.NoError(t, db.Model(other).Update("type", "Tutoring").Error)

	now := time.Now().UTC()
	completed := models.Application{
		ID: uuid.NewString(), UserID: user.ID, OpportunityID: opp.ID,
		Status: models.ApplicationStatusCompleted, AppliedAt: now, CompletedAt: &now,
	}
	pending := models.Application{
		ID: uuid.NewString(), UserID: user.ID, OpportunityID: other.ID,
		Status: models.ApplicationStatusPending, AppliedAt: now,
	}
	// An application from the previous UTC day must land in the previous
	// histogram bucket, whatever timezone the server or session runs in
	yesterday := models.Application{
		ID: uuid.NewString(), UserID: second.ID, OpportunityID: opp.ID,
		Status: models.ApplicationStatusPending, AppliedAt: now.Add(-24 * time.Hour),
	}
	require.NoError(t, db.Create(&completed).Error)
	require.NoError(t, db.Create(&pending).Error)
	require.NoError(t, db.Create(&yesterday).Error)

	summary, err := svc.Analytics()
	require.NoError(t, err)

	assert.Equal(t, int64(2), summary.TotalOpportunities)
	assert.Equal(t, int64(3), summary.TotalApplications)
	assert.Equal(t, int64(1), summary.CompletedApplications)
	assert.InDelta(t, 100.0/3, summary.CompletionRate, 0.001)
	assert.InDelta(t, 1.5, summary.AverageApplyRate, 0.001)

	assert.Len(t, summary.DailyApplications, 30)
	assert.Equal(t, int64(2), summary.DailyApplications[29].Count)
	assert.Equal(t, int64(1), summary.DailyApplications[28].Count)

	assert.Equal(t, int64(2), summary.ApplicationsByType["Environment"])
	assert.Equal(t, int64(1), summary.ApplicationsByType["Tutoring"])
}
