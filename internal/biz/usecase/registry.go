package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
	"github.com/devricklin/telegram-session-relay/internal/biz/repo"
	"github.com/devricklin/telegram-session-relay/internal/logging"
)

// AllowCommand promotes a chat when sent from an owner or allowed chat
const AllowCommand = "/allow"

// RegistryUsecase runs the chat authorization state machine
type RegistryUsecase struct {
	registry repo.RegistryRepo
	notifier repo.Notifier
	config   repo.ConfigRepo
	notices  Notices
	logger   *slog.Logger
}

// NewRegistryUsecase creates a new registry usecase.
// config may be nil, in which case the owner is not written back.
func NewRegistryUsecase(registry repo.RegistryRepo, notifier repo.Notifier, config repo.ConfigRepo, notices Notices, logger *slog.Logger) *RegistryUsecase {
	return &RegistryUsecase{
		registry: registry,
		notifier: notifier,
		config:   config,
		notices:  notices.WithDefaults(),
		logger:   logging.Component(logger, logging.CompRegistry),
	}
}

// Seed marks pre-configured chats as allowed. If the registry has no owner
// yet, the first seeded chat becomes the owner.
func (uc *RegistryUsecase) Seed(ctx context.Context, chatIDs []int64) error {
	if len(chatIDs) == 0 {
		return nil
	}
	_, hasOwner, err := uc.OwnerChatID(ctx)
	if err != nil {
		return err
	}

	for i, id := range chatIDs {
		rec, err := uc.registry.Get(ctx, id)
		if err != nil {
			return err
		}
		state := domain.ChatStateAllowed
		if i == 0 && !hasOwner {
			state = domain.ChatStateOwner
		}
		switch {
		case rec == nil:
			rec = domain.NewChatRecord(id, "", state)
		case rec.State.CanInject():
			continue
		default:
			rec.Promote()
		}
		if err := uc.registry.Save(ctx, rec); err != nil {
			return err
		}
		uc.logger.Info("seeded chat from config", "chat_id", id, "state", rec.State)
	}
	return nil
}

// Authorize decides whether an update may proceed to injection. Every update
// that does not proceed has already been answered: unknown senders get routed
// notifications and /allow commands get a confirmation.
func (uc *RegistryUsecase) Authorize(ctx context.Context, u domain.Update) (bool, error) {
	records, err := uc.registry.List(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list registry: %w", err)
	}

	// Bootstrap trust: first contact wins
	if len(records) == 0 {
		return false, uc.registerOwner(ctx, u)
	}

	rec, err := uc.registry.Get(ctx, u.ChatID)
	if err != nil {
		return false, fmt.Errorf("failed to get chat %d: %w", u.ChatID, err)
	}

	if rec == nil {
		return false, uc.registerUnauthorized(ctx, u, records)
	}

	if !rec.State.CanInject() {
		uc.logger.Warn("message from unauthorized chat", "chat_id", u.ChatID, "sender", u.SenderName, "text", truncate(u.Text, 50))
		uc.notify(ctx, u.ChatID, uc.notices.NotAuthorized)
		return false, nil
	}

	if target, isCommand, ok := parseAllowCommand(u.Text); isCommand {
		if !ok {
			uc.notify(ctx, u.ChatID, uc.notices.AllowUsage)
			return false, nil
		}
		return false, uc.Allow(ctx, u.ChatID, target)
	}

	return true, nil
}

// Allow promotes target on behalf of issuer. The issuer must be owner or allowed.
func (uc *RegistryUsecase) Allow(ctx context.Context, issuer, target int64) error {
	issuerRec, err := uc.registry.Get(ctx, issuer)
	if err != nil {
		return err
	}
	if issuerRec == nil || !issuerRec.State.CanInject() {
		return fmt.Errorf("chat %d may not allow other chats", issuer)
	}

	if err := uc.Promote(ctx, target); err != nil {
		return err
	}

	uc.notify(ctx, issuer, Render(uc.notices.AllowConfirmed, "chat_id", strconv.FormatInt(target, 10)))
	if target != issuer {
		uc.notify(ctx, target, uc.notices.AccessGranted)
	}
	return nil
}

// Promote marks a chat allowed, creating the record if needed. It is a no-op
// for chats that can already inject.
func (uc *RegistryUsecase) Promote(ctx context.Context, chatID int64) error {
	rec, err := uc.registry.Get(ctx, chatID)
	if err != nil {
		return err
	}
	if rec == nil {
		rec = domain.NewChatRecord(chatID, "", domain.ChatStateAllowed)
	} else if !rec.Promote() {
		return nil
	}
	if err := uc.registry.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to save chat %d: %w", chatID, err)
	}
	uc.logger.Info("chat promoted", "chat_id", chatID)
	return nil
}

// OwnerChatID returns the owner chat, if one is registered
func (uc *RegistryUsecase) OwnerChatID(ctx context.Context) (int64, bool, error) {
	records, err := uc.registry.List(ctx)
	if err != nil {
		return 0, false, err
	}
	for _, r := range records {
		if r.State == domain.ChatStateOwner {
			return r.ChatID, true, nil
		}
	}
	return 0, false, nil
}

// List returns all chat records
func (uc *RegistryUsecase) List(ctx context.Context) ([]*domain.ChatRecord, error) {
	return uc.registry.List(ctx)
}

func (uc *RegistryUsecase) registerOwner(ctx context.Context, u domain.Update) error {
	uc.logger.Info("first message, registering owner", "chat_id", u.ChatID, "sender", u.SenderName)

	rec := domain.NewChatRecord(u.ChatID, u.SenderName, domain.ChatStateOwner)
	if err := uc.registry.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to save owner: %w", err)
	}

	uc.notify(ctx, u.ChatID, Render(uc.notices.Welcome,
		"sender", u.SenderName,
		"chat_id", strconv.FormatInt(u.ChatID, 10),
	))

	if uc.config != nil {
		if err := uc.config.PersistOwner(ctx, u.ChatID); err != nil {
			uc.logger.Warn("failed to persist owner to config", "chat_id", u.ChatID, "error", err)
		}
	}
	return nil
}

func (uc *RegistryUsecase) registerUnauthorized(ctx context.Context, u domain.Update, records []*domain.ChatRecord) error {
	uc.logger.Warn("message from unknown chat", "chat_id", u.ChatID, "sender", u.SenderName, "text", truncate(u.Text, 50))

	rec := domain.NewChatRecord(u.ChatID, u.SenderName, domain.ChatStateUnauthorized)
	if err := uc.registry.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to save chat %d: %w", u.ChatID, err)
	}

	if owner, ok := ownerOf(records); ok {
		uc.notify(ctx, owner, Render(uc.notices.ApprovalRequest,
			"sender", u.SenderName,
			"chat_id", strconv.FormatInt(u.ChatID, 10),
		))
		uc.logger.Info("sent approval request to owner", "owner", owner, "chat_id", u.ChatID)
	}
	uc.notify(ctx, u.ChatID, uc.notices.NotAuthorized)
	return nil
}

func (uc *RegistryUsecase) notify(ctx context.Context, chatID int64, text string) {
	if err := uc.notifier.SendText(ctx, chatID, text); err != nil {
		uc.logger.Error("failed to notify chat", "chat_id", chatID, "error", err)
	}
}

func ownerOf(records []*domain.ChatRecord) (int64, bool) {
	for _, r := range records {
		if r.State == domain.ChatStateOwner {
			return r.ChatID, true
		}
	}
	return 0, false
}

// parseAllowCommand extracts the target of "/allow <chat-id>". isCommand is
// true for any text starting with /allow, so malformed commands are never
// relayed as turns.
func parseAllowCommand(text string) (target int64, isCommand, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || fields[0] != AllowCommand {
		return 0, false, false
	}
	if len(fields) != 2 {
		return 0, true, false
	}
	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return 0, true, false
	}
	return id, true, true
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
