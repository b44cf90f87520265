// workers/roster_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"impact-tracking-system/models"
	"impact-tracking-system/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DirectoryStudent matches the JSON the campus directory service returns
// for each changed student record.
type DirectoryStudent struct {
	ExternalID string    `json:"external_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Enrolled   bool      `json:"enrolled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GetRosterChangesResponse is the top-level structure of the directory
// service response.
type GetRosterChangesResponse struct {
	Students []DirectoryStudent `json:"students"`
}

// RosterSyncWorker incrementally mirrors student records from the campus
// directory into the local users table, so students have an account
// waiting for them the first time they open the platform.
type RosterSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g., "http://directory:8300"
	endpointPath string // e.g., "/api/v1/students"
	serviceToken string
}

func NewRosterSyncWorker(db *gorm.DB, directoryBaseURL, endpointPath, serviceToken string) *RosterSyncWorker {
	return &RosterSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      directoryBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
	}
}

func (w *RosterSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Roster Sync Worker (directory → users)…")
	go w.run(ctx)
}

func (w *RosterSyncWorker) run(ctx context.Context) {
	// Initial backfill from the beginning of time
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial roster sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.syncBatch(ctx, w.getLastSyncTime()); err != nil {
				log.Printf("❌ [ROSTER_SYNC] batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Roster Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent update among directory-linked
// users. Overlapping windows are harmless — the upsert is idempotent.
func (w *RosterSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM users WHERE external_id IS NOT NULL AND deleted_at IS NULL").
		Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches roster changes since the given time and upserts them
// into the local users table keyed by external_id.
func (w *RosterSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid directory service URL '%s': %w", w.baseURL, err)
	}

	endpointURL := base.JoinPath(w.endpointPath)
	q := endpointURL.Query()
	q.Set("since", sinceStr)
	endpointURL.RawQuery = q.Encode()
	finalURL := endpointURL.String()

	req, err := http.NewRequestWithContext(ctx, "GET", finalURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", finalURL, err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := utils.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request to directory service failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("directory service non-200 response: %d — %s", resp.StatusCode, string(body))
	}

	var response GetRosterChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode directory service response: %w", err)
	}

	if len(response.Students) == 0 {
		return nil
	}

	log.Printf("[ROSTER_SYNC] 📥 Processing %d student record(s)…", len(response.Students))

	var upsertCount, errorCount int
	for _, student := range response.Students {
		externalID := student.ExternalID
		localUser := models.User{
			ExternalID: &externalID,
			Email:      student.Email,
			Name:       student.Name,
			Role:       models.RoleStudent,
		}

		// Coins and preferences stay local; only directory-owned identity
		// fields are overwritten on conflict.
		if err := w.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "name", "updated_at"}),
		}).Create(&localUser).Error; err != nil {
			errorCount++
			log.Printf("[ROSTER_SYNC] ⚠️ Failed to upsert user (external_id=%q): %v", student.ExternalID, err)
		} else {
			upsertCount++
		}
	}

	log.Printf("[ROSTER_SYNC] ✅ Synced %d student(s) (%d upserted, %d errors)",
		len(response.Students), upsertCount, errorCount)
	return nil
}
