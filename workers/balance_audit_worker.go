// workers/balance_audit_worker.go
package workers

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"
)

// BalanceAuditor periodically compares each user's denormalized coin
// balance against the sum of awards on their applications. Coins are
// credited relatively rather than recomputed, so drift here means a bug or
// a manual data edit — it is flagged for operators, never auto-corrected.
type BalanceAuditor struct {
	DB *gorm.DB
}

func NewBalanceAuditor(db *gorm.DB) *BalanceAuditor {
	return &BalanceAuditor{DB: db}
}

type balanceDrift struct {
	UserID  string
	Coins   int64
	Awarded int64
}

// checkOnce returns every user whose balance disagrees with the award sum.
func (a *BalanceAuditor) checkOnce() ([]balanceDrift, error) {
	var drifts []balanceDrift
	err := a.DB.Raw(`
		SELECT u.id AS user_id, u.coins, COALESCE(SUM(app.coins_awarded), 0) AS awarded
		FROM users u
		LEFT JOIN applications app ON app.user_id = u.id
		WHERE u.deleted_at IS NULL
		GROUP BY u.id, u.coins
		HAVING u.coins <> COALESCE(SUM(app.coins_awarded), 0)
	`).Scan(&drifts).Error
	return drifts, err
}

// PollBalances runs the audit on a fixed interval until the context ends.
func PollBalances(ctx context.Context, auditor *BalanceAuditor, pollInterval time.Duration) {
	log.Println("Starting coin balance audit polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Balance audit polling stopped.")
			return
		case <-ticker.C:
			drifts, err := auditor.checkOnce()
			if err != nil {
				log.Printf("❌ [AUDIT] balance check failed: %v", err)
				continue
			}
			if len(drifts) == 0 {
				continue
			}
			for _, d := range drifts {
				log.Printf("⚠️ [AUDIT] balance drift: user=%s coins=%d awarded=%d",
					d.UserID, d.Coins, d.Awarded)
			}
		}
	}
}
