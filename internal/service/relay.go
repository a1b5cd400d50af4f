package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
	"github.com/devricklin/telegram-session-relay/internal/biz/repo"
	"github.com/devricklin/telegram-session-relay/internal/biz/usecase"
	"github.com/devricklin/telegram-session-relay/internal/logging"
)

// RelayService runs one poll batch through authorization, admission,
// attachment resolution and coalescing, then delivers each turn
type RelayService struct {
	registry    *usecase.RegistryUsecase
	limiter     *usecase.RateLimiter
	attachments *usecase.AttachmentUsecase
	typing      *usecase.TypingController
	sink        *usecase.InjectionSink
	notifier    repo.Notifier
	notices     usecase.Notices
	logger      *slog.Logger

	now func() time.Time
}

// NewRelayService creates a new relay service
func NewRelayService(
	registry *usecase.RegistryUsecase,
	limiter *usecase.RateLimiter,
	attachments *usecase.AttachmentUsecase,
	typing *usecase.TypingController,
	sink *usecase.InjectionSink,
	notifier repo.Notifier,
	notices usecase.Notices,
	logger *slog.Logger,
) *RelayService {
	return &RelayService{
		registry:    registry,
		limiter:     limiter,
		attachments: attachments,
		typing:      typing,
		sink:        sink,
		notifier:    notifier,
		notices:     notices.WithDefaults(),
		logger:      logging.Component(logger, logging.CompRelay),
		now:         time.Now,
	}
}

// ProcessBatch handles one batch of updates and returns the number of turns
// delivered. Per-update failures are reported to the chat and never abort the batch.
func (s *RelayService) ProcessBatch(ctx context.Context, updates []domain.Update) int {
	var admitted []domain.Update
	for _, u := range updates {
		if u.ChatID == 0 {
			continue
		}
		if text, ok := s.admit(ctx, u); ok {
			u.Text = text
			admitted = append(admitted, u)
		}
	}

	delivered := 0
	for _, turn := range usecase.Coalesce(admitted) {
		if ctx.Err() != nil {
			break
		}
		if s.deliver(ctx, turn) {
			delivered++
		}
	}
	return delivered
}

// admit runs one update through the gates in order: authorization, rate
// limit, attachment resolution
func (s *RelayService) admit(ctx context.Context, u domain.Update) (string, bool) {
	ok, err := s.registry.Authorize(ctx, u)
	if err != nil {
		s.logger.Error("authorization failed", "chat_id", u.ChatID, "update_id", u.ID, "error", err)
		return "", false
	}
	if !ok {
		return "", false
	}

	if !s.limiter.Allow(u.ChatID) {
		cfg := s.limiter.Config()
		s.logger.Warn("rate limited", "chat_id", u.ChatID, "update_id", u.ID)
		s.notify(ctx, u.ChatID, usecase.Render(s.notices.Throttled,
			"max", strconv.Itoa(cfg.Max),
			"window", cfg.Window.String(),
		))
		return "", false
	}

	return s.attachments.Resolve(ctx, u)
}

func (s *RelayService) deliver(ctx context.Context, turn *domain.Turn) bool {
	s.typing.Start(turn.ChatID)

	err := s.sink.Inject(ctx, usecase.InjectRequest{
		Source:    domain.SourceTelegram,
		Sender:    turn.Sender,
		Text:      turn.Text(),
		ChatID:    turn.ChatID,
		Fragments: len(turn.Fragments),
		Timestamp: s.now(),
	})
	if err != nil {
		s.typing.Stop(turn.ChatID)
		s.notify(ctx, turn.ChatID, s.notices.SessionUnreachable)
		return false
	}
	return true
}

// InjectPeer delivers a message received from the paired instance
func (s *RelayService) InjectPeer(ctx context.Context, p *domain.PeerInjection) error {
	if p == nil || strings.TrimSpace(p.Message) == "" {
		return errors.New("message is required")
	}
	sender := p.Sender
	if sender == "" {
		sender = "Peer"
	}
	ts := s.now()
	if p.Timestamp != "" {
		if parsed, err := time.ParseInLocation(domain.PeerTimestampLayout, p.Timestamp, time.Local); err == nil {
			ts = parsed
		} else if parsed, err := time.Parse(time.RFC3339, p.Timestamp); err == nil {
			ts = parsed.Local()
		}
	}

	return s.sink.Inject(ctx, usecase.InjectRequest{
		Source:    domain.SourcePeer,
		Sender:    sender,
		Text:      strings.TrimSpace(p.Message),
		Fragments: 1,
		Timestamp: ts,
	})
}

// Shutdown stops every typing loop
func (s *RelayService) Shutdown() {
	s.typing.StopAll()
}

func (s *RelayService) notify(ctx context.Context, chatID int64, text string) {
	if err := s.notifier.SendText(ctx, chatID, text); err != nil {
		s.logger.Error("failed to notify chat", "chat_id", chatID, "error", err)
	}
}
