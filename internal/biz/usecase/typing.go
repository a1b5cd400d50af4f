package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/devricklin/telegram-session-relay/internal/biz/repo"
	"github.com/devricklin/telegram-session-relay/internal/logging"
)

// TypingConfig controls the typing indicator loop
type TypingConfig struct {
	Interval    time.Duration // Telegram clears the indicator after ~5s
	Timeout     time.Duration // hard upper bound on a loop's lifetime
	JoinTimeout time.Duration // how long Start/Stop wait for a previous loop to exit
	SendTimeout time.Duration
}

// DefaultTypingConfig returns the production defaults
func DefaultTypingConfig() TypingConfig {
	return TypingConfig{
		Interval:    4 * time.Second,
		Timeout:     90 * time.Second,
		JoinTimeout: 2 * time.Second,
		SendTimeout: 5 * time.Second,
	}
}

type typingSession struct {
	chatID int64
	ctx    context.Context // done once the loop is superseded or stopped
	cancel context.CancelFunc
	done   chan struct{}
	stop   atomic.Bool
}

// TypingController keeps a "typing..." indicator alive in chats while the
// session works. At most one loop runs at a time; starting a new loop
// replaces the previous one.
type TypingController struct {
	sender repo.TypingSender
	config TypingConfig
	logger *slog.Logger

	lifecycle sync.Mutex
	sessions  sync.Map // chatID -> *typingSession
}

// NewTypingController creates a new typing controller
func NewTypingController(sender repo.TypingSender, cfg TypingConfig, logger *slog.Logger) *TypingController {
	return &TypingController{
		sender: sender,
		config: cfg,
		logger: logging.Component(logger, logging.CompTyping),
	}
}

// Start begins a typing loop for chatID, replacing any running loop
func (c *TypingController) Start(chatID int64) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.stopAllLocked()

	ctx, cancel := context.WithCancel(context.Background())
	s := &typingSession{
		chatID: chatID,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.sessions.Store(chatID, s)
	go c.run(s)
	c.logger.Debug("typing started", "chat_id", chatID)
}

// Stop ends the loop for chatID and waits briefly for it to exit
func (c *TypingController) Stop(chatID int64) {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	v, ok := c.sessions.Load(chatID)
	if !ok {
		return
	}
	c.join(v.(*typingSession))
}

// StopAll ends every running loop
func (c *TypingController) StopAll() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.stopAllLocked()
}

// RequestStop asks every loop to exit at its next tick. It never blocks and
// is safe to call from a watcher goroutine.
func (c *TypingController) RequestStop() {
	c.sessions.Range(func(_, v any) bool {
		v.(*typingSession).stop.Store(true)
		return true
	})
}

// Running reports whether a loop is active for chatID
func (c *TypingController) Running(chatID int64) bool {
	_, ok := c.sessions.Load(chatID)
	return ok
}

func (c *TypingController) stopAllLocked() {
	c.sessions.Range(func(_, v any) bool {
		c.join(v.(*typingSession))
		return true
	})
}

func (c *TypingController) join(s *typingSession) {
	s.cancel()
	select {
	case <-s.done:
	case <-time.After(c.config.JoinTimeout):
		c.logger.Warn("typing loop did not exit in time", "chat_id", s.chatID)
	}
	c.sessions.CompareAndDelete(s.chatID, s)
}

func (c *TypingController) run(s *typingSession) {
	defer func() {
		s.cancel()
		c.sessions.CompareAndDelete(s.chatID, s)
		close(s.done)
	}()

	deadline := time.Now().Add(c.config.Timeout)
	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		// A superseded loop must not send again, even if it outlived the join
		if s.ctx.Err() != nil {
			return
		}
		if s.stop.Swap(false) {
			c.logger.Debug("typing stopped by request", "chat_id", s.chatID)
			return
		}
		if !time.Now().Before(deadline) {
			c.logger.Info("typing timed out", "chat_id", s.chatID, "timeout", c.config.Timeout.String())
			return
		}

		ctx, cancel := context.WithTimeout(s.ctx, c.config.SendTimeout)
		if err := c.sender.SendTyping(ctx, s.chatID); err != nil {
			c.logger.Debug("typing send failed", "chat_id", s.chatID, "error", err)
		}
		cancel()

		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
