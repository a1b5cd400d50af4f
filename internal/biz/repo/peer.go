package repo

import (
	"context"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
)

// PeerRepo posts injections to a paired instance
type PeerRepo interface {
	Post(ctx context.Context, injection *domain.PeerInjection) error
}
