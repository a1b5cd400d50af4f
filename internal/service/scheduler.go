package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/devricklin/telegram-session-relay/internal/biz/repo"
	"github.com/devricklin/telegram-session-relay/internal/logging"
)

// MaintenanceScheduler prunes old journal entries
type MaintenanceScheduler struct {
	journal   repo.JournalRepo
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMaintenanceScheduler creates a scheduler running every interval and
// keeping retention worth of journal entries
func NewMaintenanceScheduler(journal repo.JournalRepo, interval, retention time.Duration, logger *slog.Logger) *MaintenanceScheduler {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}
	return &MaintenanceScheduler{
		journal:   journal,
		interval:  interval,
		retention: retention,
		logger:    logging.Component(logger, logging.CompJournal),
	}
}

// Start starts the scheduler
func (s *MaintenanceScheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.cleanupLoop()

	s.logger.Info("maintenance scheduler started", "interval", s.interval.String(), "retention", s.retention.String())
}

// Stop stops the scheduler
func (s *MaintenanceScheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// cleanupLoop runs a cleanup immediately and then every interval
func (s *MaintenanceScheduler) cleanupLoop() {
	defer s.wg.Done()

	s.cleanup()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *MaintenanceScheduler) cleanup() {
	n, err := s.journal.CleanupOld(s.ctx, time.Now().Add(-s.retention))
	if err != nil {
		s.logger.Error("journal cleanup failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("pruned journal entries", "count", n)
	}
}
