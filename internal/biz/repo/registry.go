package repo

import (
	"context"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
)

// RegistryRepo is the durable chat authorization registry
type RegistryRepo interface {
	// Get returns the record for a chat, or nil if none exists
	Get(ctx context.Context, chatID int64) (*domain.ChatRecord, error)

	// Save creates or replaces a record and persists the registry
	Save(ctx context.Context, record *domain.ChatRecord) error

	// List returns all records ordered by creation time
	List(ctx context.Context) ([]*domain.ChatRecord, error)
}

// ConfigRepo writes trust decisions back into the durable config
type ConfigRepo interface {
	PersistOwner(ctx context.Context, chatID int64) error
}
