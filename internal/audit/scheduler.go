package audit

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler runs the auditor periodically.
type Scheduler struct {
	scheduler *gocron.Scheduler
	auditor   *Auditor
	timeout   time.Duration
}

func NewScheduler(auditor *Auditor) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		auditor:   auditor,
		timeout:   time.Minute,
	}
}

// Start schedules an audit every interval, the first one immediately.
func (s *Scheduler) Start(interval time.Duration) error {
	if _, err := s.scheduler.Every(interval).SingletonMode().Do(s.runOnce); err != nil {
		return err
	}
	s.scheduler.StartAsync()
	log.Printf("[audit] scheduled every %v", interval)
	return nil
}

func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.auditor.Run(ctx); err != nil {
		log.Printf("[audit] run failed: %v", err)
	}
}
