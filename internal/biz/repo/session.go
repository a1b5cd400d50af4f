package repo

import (
	"context"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
)

// SessionRepo delivers keystrokes to the downstream interactive session
type SessionRepo interface {
	// MarkTrigger records which ingestion path is about to drive the session
	MarkTrigger(ctx context.Context, source domain.Source) error

	// SendKeys types text into the session without submitting it
	SendKeys(ctx context.Context, text string) error

	// Submit sends the bare submit keystroke
	Submit(ctx context.Context) error
}
