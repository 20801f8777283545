// services/sweeper.go
package services

import (
	"log"
	"time"

	"gold-ticket-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartExhaustedSweeper periodically archives treasures whose stock hit
// zero. Exhausted records are already invisible to every active listing;
// the sweeper soft-deletes them once the retention window passes so the
// table keeps live drops plus a short historical tail.
func (s *TreasureService) StartExhaustedSweeper(retention time.Duration) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("[Sweeper] scheduler init failed: %v", err)
		return
	}
	sched.Start()

	// Every 10 minutes: archive exhausted treasures past retention
	_, err = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			s.archiveExhausted(time.Now().Add(-retention))
		}),
	)
	if err != nil {
		log.Printf("[Sweeper] job registration failed: %v", err)
	}
}

// archiveExhausted soft-deletes treasures that ran out of stock before
// cutoff. Records still holding boxes are never touched.
func (s *TreasureService) archiveExhausted(cutoff time.Time) {
	res := s.DB.Where("remaining_boxes = 0 AND updated_at < ?", cutoff).
		Delete(&models.Treasure{})
	if res.Error != nil {
		log.Printf("[Sweeper] DB error: %v", res.Error)
		return
	}
	if res.RowsAffected > 0 {
		log.Printf("🧹 Archived %d exhausted treasure(s)", res.RowsAffected)
	}
}
