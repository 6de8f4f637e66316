package jobs

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"assessment-service/internal/service"
)

const (
	expirySchedule  = "@every 1m"
	patternSchedule = "@every 15m"

	// patternLookback overlaps the pattern schedule so a slow sweep never
	// skips a student graded near the boundary.
	patternLookback = 20 * time.Minute
)

// Scheduler runs the background sweeps: expiring abandoned attempts and
// re-analyzing recently graded students.
type Scheduler struct {
	cron     *cron.Cron
	attempts *service.AttemptService
	patterns *service.PatternService
}

func NewScheduler(attempts *service.AttemptService, patterns *service.PatternService) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		attempts: attempts,
		patterns: patterns,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(expirySchedule, s.expireOverdueAttempts); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(patternSchedule, s.refreshRecentPatterns); err != nil {
		return err
	}
	s.cron.Start()
	log.Println("[SCHEDULER] Started attempt expiry and pattern refresh jobs")
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[SCHEDULER] Stopped")
}

func (s *Scheduler) expireOverdueAttempts() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	expired, err := s.attempts.ExpireOverdue(ctx)
	if err != nil {
		log.Printf("[SCHEDULER] Attempt expiry sweep failed: %v", err)
		return
	}
	if expired > 0 {
		log.Printf("[SCHEDULER] Expired %d overdue attempts", expired)
	}
}

func (s *Scheduler) refreshRecentPatterns() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	refreshed, err := s.patterns.RefreshSince(ctx, time.Now().Add(-patternLookback))
	if err != nil {
		log.Printf("[SCHEDULER] Pattern refresh sweep failed: %v", err)
		return
	}
	if refreshed > 0 {
		log.Printf("[SCHEDULER] Refreshed learning patterns for %d students", refreshed)
	}
}
