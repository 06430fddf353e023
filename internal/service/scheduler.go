package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yourusername/studyhub-api/internal/config"
	"github.com/yourusername/studyhub-api/pkg/logger"
)

// SessionSweeper удаляет брошенные сессии
type SessionSweeper interface {
	SweepAbandoned(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Scheduler запускает фоновые задачи по cron-расписанию
type Scheduler struct {
	cron    *cron.Cron
	sweeper SessionSweeper
	cfg     config.SchedulerConfig
	log     *logger.Logger
}

// NewScheduler создает планировщик и регистрирует задачи
func NewScheduler(cfg config.SchedulerConfig, sweeper SessionSweeper, log *logger.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		sweeper: sweeper,
		cfg:     cfg,
		log:     log.With("component", "scheduler"),
	}
	if _, err := s.cron.AddFunc(cfg.SessionSweepSpec, s.sweepSessions); err != nil {
		return nil, fmt.Errorf("invalid session sweep schedule %q: %w", cfg.SessionSweepSpec, err)
	}
	return s, nil
}

// Start запускает планировщик в отдельной горутине
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "session_sweep", s.cfg.SessionSweepSpec, "abandoned_after", s.cfg.AbandonedAfter)
}

// Stop останавливает планировщик и ждет завершения текущих задач
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

func (s *Scheduler) sweepSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, err := s.sweeper.SweepAbandoned(ctx, s.cfg.AbandonedAfter); err != nil {
		s.log.Error("session sweep failed", "error", err)
	}
}
