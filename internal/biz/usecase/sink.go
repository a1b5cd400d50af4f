package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
	"github.com/devricklin/telegram-session-relay/internal/biz/repo"
	"github.com/devricklin/telegram-session-relay/internal/logging"
)

// InjectRequest is one turn ready for delivery to the session
type InjectRequest struct {
	Source    domain.Source
	Sender    string
	Text      string
	ChatID    int64 // zero for peer turns
	Fragments int
	Timestamp time.Time
}

// FormatLine renders the single line the session sees:
// "[TELEGRAM from Alice | 2025-01-02 15:04]: text"
func FormatLine(r InjectRequest) string {
	ts := r.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return fmt.Sprintf("[%s from %s | %s]: %s", r.Source.Label(), r.Sender, ts.Format("2006-01-02 15:04"), r.Text)
}

// InjectionSink delivers turns to the session as keystrokes. Deliveries are
// serialized so two turns never interleave on the terminal.
type InjectionSink struct {
	session     repo.SessionRepo
	journal     repo.JournalRepo
	submitDelay time.Duration
	logger      *slog.Logger

	mu sync.Mutex
}

// NewInjectionSink creates a new injection sink. journal may be nil.
func NewInjectionSink(session repo.SessionRepo, journal repo.JournalRepo, logger *slog.Logger) *InjectionSink {
	return &InjectionSink{
		session:     session,
		journal:     journal,
		submitDelay: 300 * time.Millisecond,
		logger:      logging.Component(logger, logging.CompSink),
	}
}

// Inject types the formatted turn into the session and submits it
func (s *InjectionSink) Inject(ctx context.Context, r InjectRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Fragments == 0 {
		r.Fragments = 1
	}
	line := FormatLine(r)

	// Keystrokes already sent must be followed by Enter, even on shutdown
	kctx := context.WithoutCancel(ctx)

	if err := s.session.MarkTrigger(kctx, r.Source); err != nil {
		s.logger.Warn("failed to write trigger marker", "source", r.Source, "error", err)
	}

	err := s.session.SendKeys(kctx, line)
	if err == nil {
		time.Sleep(s.submitDelay)
		err = s.session.Submit(kctx)
	}
	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrSessionUnreachable, err)
		s.logger.Error("injection failed", "source", r.Source, "chat_id", r.ChatID, "error", err)
	} else {
		s.logger.Info("turn injected", "source", r.Source, "chat_id", r.ChatID, "sender", r.Sender, "fragments", r.Fragments, "bytes", len(r.Text))
	}

	s.record(kctx, r, err)
	return err
}

func (s *InjectionSink) record(ctx context.Context, r InjectRequest, injectErr error) {
	if s.journal == nil {
		return
	}
	entry := &domain.JournalEntry{
		Source:    r.Source,
		ChatID:    r.ChatID,
		Sender:    r.Sender,
		Fragments: r.Fragments,
		Bytes:     len(r.Text),
		Delivered: injectErr == nil,
		CreatedAt: time.Now(),
	}
	if injectErr != nil {
		entry.Error = injectErr.Error()
	}
	if err := s.journal.Record(ctx, entry); err != nil {
		s.logger.Warn("failed to journal turn", "error", err)
	}
}
