package repo

import (
	"context"
	"time"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
)

// JournalRepo persists injection attempts and the poll cursor (SQLite)
type JournalRepo interface {
	Record(ctx context.Context, entry *domain.JournalEntry) error
	Recent(ctx context.Context, limit int) ([]*domain.JournalEntry, error)
	CleanupOld(ctx context.Context, before time.Time) (int64, error)

	LoadCursor(ctx context.Context) (int, error)
	SaveCursor(ctx context.Context, cursor int) error

	Close() error
}
