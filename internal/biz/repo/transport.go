package repo

import (
	"context"
	"io"
	"time"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
)

// Notifier sends user-visible text to a chat
type Notifier interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// TypingSender emits a single "typing" chat action
type TypingSender interface {
	SendTyping(ctx context.Context, chatID int64) error
}

// FileSender uploads a local file to a chat
type FileSender interface {
	SendFile(ctx context.Context, chatID int64, path, caption string) error
}

// TransportRepo is the upstream chat transport
// Responsible for polling updates, sending text and fetching attachments
type TransportRepo interface {
	Notifier
	TypingSender
	FileSender

	// GetUpdates long-polls for updates with id >= offset, waiting at most timeout
	GetUpdates(ctx context.Context, offset int, timeout time.Duration) ([]domain.Update, error)

	// FileURL resolves an attachment reference to a fetch location
	FileURL(ctx context.Context, fileID string) (string, error)

	// Fetch opens the content at a fetch location
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}
