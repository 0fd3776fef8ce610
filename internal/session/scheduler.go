package session

import (
	"context"
	"log"
	"time"
)

// Scheduler runs the periodic expiry sweep. expires_at is fixed at creation,
// so the sweep is the only thing that moves sessions to expired.
type Scheduler struct {
	service Service
	period  time.Duration
}

func NewScheduler(service Service, period time.Duration) *Scheduler {
	return &Scheduler{service: service, period: period}
}

func (s *Scheduler) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.service.ExpireSessions(ctx); err != nil {
				log.Printf("expiry sweep failed: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
