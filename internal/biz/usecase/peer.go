package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
	"github.com/devricklin/telegram-session-relay/internal/biz/repo"
	"github.com/devricklin/telegram-session-relay/internal/logging"
)

// PeerUsecase sends messages to a paired relay instance
type PeerUsecase struct {
	peer     repo.PeerRepo
	registry *RegistryUsecase
	notifier repo.Notifier
	sender   string
	notices  Notices
	logger   *slog.Logger
}

// NewPeerUsecase creates a new peer usecase. registry and notifier may be nil
// when there is no chat to alert on failure.
func NewPeerUsecase(peer repo.PeerRepo, sender string, registry *RegistryUsecase, notifier repo.Notifier, notices Notices, logger *slog.Logger) *PeerUsecase {
	if sender == "" {
		sender = "Peer"
	}
	return &PeerUsecase{
		peer:     peer,
		registry: registry,
		notifier: notifier,
		sender:   sender,
		notices:  notices.WithDefaults(),
		logger:   logging.Component(logger, logging.CompPeer),
	}
}

// Send posts message to the peer. Failures are reported to the owner chat.
func (uc *PeerUsecase) Send(ctx context.Context, message string) error {
	if message == "" {
		return fmt.Errorf("message is required")
	}
	err := uc.peer.Post(ctx, &domain.PeerInjection{
		Message:   message,
		Sender:    uc.sender,
		Timestamp: time.Now().Format(domain.PeerTimestampLayout),
	})
	if err == nil {
		uc.logger.Info("message sent to peer", "bytes", len(message))
		return nil
	}

	uc.logger.Error("peer send failed", "error", err)
	uc.alertOwner(ctx, err)
	return err
}

func (uc *PeerUsecase) alertOwner(ctx context.Context, cause error) {
	if uc.registry == nil || uc.notifier == nil {
		return
	}
	owner, ok, err := uc.registry.OwnerChatID(ctx)
	if err != nil || !ok {
		return
	}
	if err := uc.notifier.SendText(ctx, owner, Render(uc.notices.PeerAlert, "error", cause.Error())); err != nil {
		uc.logger.Warn("failed to alert owner", "error", err)
	}
}
