package monitor

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs the check cycle every N minutes and once immediately at
// startup, so a restart never waits a full interval for the first check.
type Scheduler struct {
	svc      *Service
	cron     *cron.Cron
	interval int
	log      zerolog.Logger
}

func NewScheduler(svc *Service, intervalMinutes int, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		svc:      svc,
		cron:     cron.New(),
		interval: intervalMinutes,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	spec := fmt.Sprintf("*/%d * * * *", s.interval)
	if _, err := s.cron.AddFunc(spec, func() {
		s.svc.RunScheduled(ctx)
	}); err != nil {
		return fmt.Errorf("scheduling announcement checks: %w", err)
	}

	s.cron.Start()
	s.log.Info().Int("interval_minutes", s.interval).Msg("scheduler started")

	go s.svc.RunScheduled(ctx)
	return nil
}

// Stop halts the timer and waits for any running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}
