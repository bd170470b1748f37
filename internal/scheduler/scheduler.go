package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opuscenter/tutor-center-api/internal/service"
	"github.com/opuscenter/tutor-center-api/pkg/config"
)

// Scheduler runs the daily reminder pass at the configured local time.
type Scheduler struct {
	reminders *service.ReminderService
	metrics   *service.MetricsService
	cfg       config.ReminderConfig
	logger    *zap.Logger
	stopChan  chan struct{}
	now       func() time.Time
}

// New creates the background scheduler. metrics may be nil.
func New(reminders *service.ReminderService, metrics *service.MetricsService, cfg config.ReminderConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		reminders: reminders,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
		stopChan:  make(chan struct{}),
		now:       time.Now,
	}
}

// Start launches the daily reminder task. A no-op when reminders are
// disabled.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info("reminder scheduler disabled")
		return
	}
	s.logger.Info("starting reminder scheduler", zap.String("send_at", s.cfg.SendAt))
	go s.runDailyReminderTask(ctx)
}

// Stop stops the background task.
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

func (s *Scheduler) runDailyReminderTask(ctx context.Context) {
	timer := time.NewTimer(s.untilNextRun())
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			s.dispatch(ctx)
			timer.Reset(s.untilNextRun())
		case <-s.stopChan:
			s.logger.Info("reminder task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("reminder task cancelled")
			return
		}
	}
}

// untilNextRun computes the wait until the next occurrence of SendAt. When
// today's slot already passed, the next run is tomorrow.
func (s *Scheduler) untilNextRun() time.Duration {
	var hour, minute int
	if _, err := fmt.Sscanf(s.cfg.SendAt, "%d:%d", &hour, &minute); err != nil {
		hour, minute = 9, 0
	}

	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

func (s *Scheduler) dispatch(ctx context.Context) {
	report, err := s.reminders.RunScheduled(ctx)
	if err != nil {
		s.logger.Error("scheduled reminder run failed", zap.Error(err))
		return
	}
	if report == nil {
		return
	}
	if s.metrics != nil {
		s.metrics.ObserveReminderRun(report)
	}
}
