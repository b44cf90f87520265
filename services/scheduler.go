// services/scheduler.go
package services

import (
	"log"
	"time"

	"impact-tracking-system/models"

	"github.com/go-co-op/gocron/v2"
)

func (s *OpportunityService) StartDeadlineScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every minute: close open opportunities whose deadline has passed
	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			var opps []models.Opportunity
			now := time.Now()
			err := s.DB.Where("status = ? AND deadline IS NOT NULL AND deadline <= ?",
				models.OpportunityStatusOpen, now).
				Find(&opps).Error
			if err != nil {
				log.Printf("[SCHEDULER] DB error: %v", err)
				return
			}

			for _, o := range opps {
				o.Status = models.OpportunityStatusClosed
				if err := s.DB.Save(&o).Error; err != nil {
					log.Printf("[SCHEDULER] Failed to close opportunity %s: %v", o.ID, err)
				} else {
					log.Printf("✅ Auto-closed opportunity past deadline: %s", o.Title)
				}
			}
		}),
	)
}
