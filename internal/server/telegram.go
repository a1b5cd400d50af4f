package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
	"github.com/devricklin/telegram-session-relay/internal/biz/repo"
	"github.com/devricklin/telegram-session-relay/internal/logging"
)

// Poller is the upstream read side
type Poller interface {
	Poll(ctx context.Context) ([]domain.Update, error)
	Cursor() int
}

// BatchProcessor handles one batch of updates
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, updates []domain.Update) int
}

// TelegramServer runs the primary loop: poll, persist cursor, process
type TelegramServer struct {
	poller     Poller
	journal    repo.JournalRepo
	relay      BatchProcessor
	errorDelay time.Duration
	logger     *slog.Logger
}

// NewTelegramServer creates a new Telegram server. journal may be nil, in
// which case the cursor is not persisted.
func NewTelegramServer(poller Poller, journal repo.JournalRepo, relay BatchProcessor, logger *slog.Logger) *TelegramServer {
	return &TelegramServer{
		poller:     poller,
		journal:    journal,
		relay:      relay,
		errorDelay: 5 * time.Second,
		logger:     logging.Component(logger, logging.CompPoller),
	}
}

// Run polls until ctx is done
func (s *TelegramServer) Run(ctx context.Context) error {
	s.logger.Info("polling for updates", "cursor", s.poller.Cursor())

	for ctx.Err() == nil {
		updates, err := s.poller.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			s.logger.Error("poll failed, backing off", "error", err, "delay", s.errorDelay.String())
			select {
			case <-ctx.Done():
			case <-time.After(s.errorDelay):
			}
			continue
		}
		if len(updates) == 0 {
			continue
		}

		// Persist before processing so a crash never replays a batch
		s.saveCursor(ctx)

		n := s.relay.ProcessBatch(ctx, updates)
		s.logger.Debug("batch processed", "updates", len(updates), "turns", n)
	}

	s.logger.Info("poll loop stopped", "cursor", s.poller.Cursor())
	return nil
}

func (s *TelegramServer) saveCursor(ctx context.Context) {
	if s.journal == nil {
		return
	}
	if err := s.journal.SaveCursor(context.WithoutCancel(ctx), s.poller.Cursor()); err != nil {
		s.logger.Warn("failed to save cursor", "error", err)
	}
}
