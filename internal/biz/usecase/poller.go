package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
	"github.com/devricklin/telegram-session-relay/internal/biz/repo"
	"github.com/devricklin/telegram-session-relay/internal/logging"
)

// PollerConfig contains long-poll settings
type PollerConfig struct {
	PollTimeout   time.Duration // Long-poll wait bound
	FollowUpDelay time.Duration // Settle time before the zero-wait follow-up poll
	Retry         RetryPolicy
}

// DefaultPollerConfig returns default poller configuration
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		PollTimeout:   30 * time.Second,
		FollowUpDelay: 300 * time.Millisecond,
		Retry:         DefaultRetryPolicy(),
	}
}

// Poller reads updates from the transport and owns the cursor.
// It is not safe for concurrent use; the poll loop is its only caller.
type Poller struct {
	transport repo.TransportRepo
	config    PollerConfig
	cursor    int
	logger    *slog.Logger
}

// NewPoller creates a poller starting at cursor
func NewPoller(transport repo.TransportRepo, cursor int, config PollerConfig, logger *slog.Logger) *Poller {
	return &Poller{
		transport: transport,
		config:    config,
		cursor:    cursor,
		logger:    logging.Component(logger, logging.CompPoller),
	}
}

// Cursor returns the id of the next update to read
func (p *Poller) Cursor() int {
	return p.cursor
}

// Poll long-polls for the next batch. A non-empty batch is extended by one
// zero-wait follow-up poll so that a long message the transport split into
// consecutive updates lands in the same batch.
//
// The cursor moves past every update as soon as it is read. Processing
// failures downstream never rewind it.
func (p *Poller) Poll(ctx context.Context) ([]domain.Update, error) {
	var raw []domain.Update
	err := Retry(ctx, p.config.Retry, p.logger, "getUpdates", func(ctx context.Context) error {
		var err error
		raw, err = p.transport.GetUpdates(ctx, p.cursor, p.config.PollTimeout)
		return err
	})
	if err != nil {
		return nil, err
	}

	batch := p.accept(raw)
	if len(batch) == 0 {
		return nil, nil
	}

	if !sleepCtx(ctx, p.config.FollowUpDelay) {
		return batch, nil
	}
	followUp, err := p.transport.GetUpdates(ctx, p.cursor, 0)
	if err != nil {
		p.logger.Warn("follow-up poll failed", "cursor", p.cursor, "error", err)
		return batch, nil
	}
	if more := p.accept(followUp); len(more) > 0 {
		p.logger.Debug("follow-up poll extended batch", "extra", len(more))
		batch = append(batch, more...)
	}
	return batch, nil
}

// accept advances the cursor over raw and drops anything already consumed
func (p *Poller) accept(raw []domain.Update) []domain.Update {
	var out []domain.Update
	for _, u := range raw {
		if u.ID < p.cursor {
			p.logger.Debug("dropping already consumed update", "update_id", u.ID, "cursor", p.cursor)
			continue
		}
		p.cursor = u.ID + 1
		out = append(out, u)
	}
	return out
}
