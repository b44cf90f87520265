// services/leaderboard_service.go
package services

import (
	"time"

	"impact-tracking-system/models"

	"gorm.io/gorm"
)

// Timeframe filters for the leaderboard tiebreak. Note the asymmetry:
// coins are always the all-time balance; only the completed-application
// tiebreak respects the window.
const (
	TimeframeAll      = "all"
	TimeframeMonth    = "month"
	TimeframeSemester = "semester"

	semesterDays = 120
)

type LeaderboardService struct {
	DB *gorm.DB
}

func NewLeaderboardService(db *gorm.DB) *LeaderboardService {
	return &LeaderboardService{DB: db}
}

// LeaderboardEntry is one ranked row. Users who opted out of the public
// leaderboard keep their rank but show a masked name.
type LeaderboardEntry struct {
	Rank           int    `json:"rank"`
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	Anonymous      bool   `json:"anonymous"`
	Coins          int64  `json:"coins"`
	CompletedCount int64  `json:"completed_count"`
}

// Leaderboard ranks users by coin balance descending, tie-broken by
// completed-application count (within the timeframe window) descending.
// Rank is the 1-based position in the sorted result.
func (s *LeaderboardService) Leaderboard(limit int, timeframe string) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	completedFilter := "a.status = ?"
	args := []interface{}{models.ApplicationStatusCompleted}
	if start, ok := windowStart(timeframe, time.Now()); ok {
		completedFilter += " AND a.completed_at >= ?"
		args = append(args, start)
	}
	args = append(args, limit)

	type row struct {
		UserID               string
		Name                 string
		AnonymizeLeaderboard bool
		Coins                int64
		CompletedCount       int64
	}
	var rows []row
	err := s.DB.Raw(`
		SELECT u.id AS user_id, u.name, u.anonymize_leaderboard, u.coins,
		       COALESCE(c.completed_count, 0) AS completed_count
		FROM users u
		LEFT JOIN (
			SELECT a.user_id, COUNT(*) AS completed_count
			FROM applications a
			WHERE `+completedFilter+`
			GROUP BY a.user_id
		) c ON c.user_id = u.id
		WHERE u.deleted_at IS NULL
		ORDER BY u.coins DESC, completed_count DESC, u.created_at ASC
		LIMIT ?
	`, args...).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(rows))
	for i, r := range rows {
		name := r.Name
		if r.AnonymizeLeaderboard {
			name = "Anonymous"
		}
		entries[i] = LeaderboardEntry{
			Rank:           i + 1,
			UserID:         r.UserID,
			Name:           name,
			Anonymous:      r.AnonymizeLeaderboard,
			Coins:          r.Coins,
			CompletedCount: r.CompletedCount,
		}
	}
	return entries, nil
}

// windowStart returns the cutoff for the given timeframe and whether a
// cutoff applies at all ("all" and unknown values mean no filter).
func windowStart(timeframe string, now time.Time) (time.Time, bool) {
	switch timeframe {
	case TimeframeMonth:
		return now.AddDate(0, -1, 0), true
	case TimeframeSemester:
		return now.AddDate(0, 0, -semesterDays), true
	default:
		return time.Time{}, false
	}
}

// DailyCount is one bucket of the application histogram.
type DailyCount struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int64  `json:"count"`
}

// AnalyticsSummary is the admin dashboard snapshot. Every call recomputes
// from the store; there is no caching.
type AnalyticsSummary struct {
	TotalOpportunities    int64            `json:"total_opportunities"`
	TotalApplications     int64            `json:"total_applications"`
	CompletedApplications int64            `json:"completed_applications"`
	CompletionRate        float64          `json:"completion_rate"`   // completed/total × 100
	AverageApplyRate      float64          `json:"average_apply_rate"` // applications per opportunity
	DailyApplications     []DailyCount     `json:"daily_applications"` // last 30 days, zero-filled
	ApplicationsByType    map[string]int64 `json:"applications_by_type"`
}

// Analytics computes the point-in-time aggregate summary.
func (s *LeaderboardService) Analytics() (*AnalyticsSummary, error) {
	summary := &AnalyticsSummary{}

	if err := s.DB.Model(&models.Opportunity{}).Count(&summary.TotalOpportunities).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.Application{}).Count(&summary.TotalApplications).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.Application{}).
		Where("status = ?", models.ApplicationStatusCompleted).
		Count(&summary.CompletedApplications).Error; err != nil {
		return nil, err
	}

	if summary.TotalApplications > 0 {
		summary.CompletionRate = float64(summary.CompletedApplications) / float64(summary.TotalApplications) * 100
	}
	if summary.TotalOpportunities > 0 {
		summary.AverageApplyRate = float64(summary.TotalApplications) / float64(summary.TotalOpportunities)
	}

	// Histogram buckets are UTC calendar days on both sides: the query
	// dates in UTC and the zero-fill below labels from a UTC clock, so
	// counts near midnight land in the same bucket regardless of the
	// server or session timezone.
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -29)

	type dayRow struct {
		Day   time.Time
		Count int64
	}
	var dayRows []dayRow
	if err := s.DB.Raw(`
		SELECT DATE(applied_at AT TIME ZONE 'UTC') AS day, COUNT(*) AS count
		FROM applications
		WHERE applied_at >= ?
		GROUP BY DATE(applied_at AT TIME ZONE 'UTC')
		ORDER BY day ASC
	`, since).Scan(&dayRows).Error; err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(dayRows))
	for _, r := range dayRows {
		counts[r.Day.Format("2006-01-02")] = r.Count
	}
	summary.DailyApplications = fillDailyCounts(30, now, counts)

	type typeRow struct {
		Type  string
		Count int64
	}
	var typeRows []typeRow
	if err := s.DB.Raw(`
		SELECT o.type AS type, COUNT(a.id) AS count
		FROM applications a
		INNER JOIN opportunities o ON o.id = a.opportunity_id
		GROUP BY o.type
	`).Scan(&typeRows).Error; err != nil {
		return nil, err
	}
	summary.ApplicationsByType = make(map[string]int64, len(typeRows))
	for _, r := range typeRows {
		summary.ApplicationsByType[r.Type] = r.Count
	}

	return summary, nil
}

// fillDailyCounts expands a sparse day→count map into a dense series of
// the last `days` days ending at `now`, zero-filling missing buckets.
func fillDailyCounts(days int, now time.Time, counts map[string]int64) []DailyCount {
	series := make([]DailyCount, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		series = append(series, DailyCount{Day: day, Count: counts[day]})
	}
	return series
}
