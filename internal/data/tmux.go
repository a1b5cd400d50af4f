package data

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
	"github.com/devricklin/telegram-session-relay/internal/biz/repo"
)

// tmuxRepo delivers keystrokes to a tmux pane
type tmuxRepo struct {
	binary      string
	target      string
	contextFile string
}

// NewTmuxRepo creates a session repo typing into target ("session:window").
// contextFile receives the source label before each injection; empty disables it.
func NewTmuxRepo(target, contextFile string) repo.SessionRepo {
	return &tmuxRepo{
		binary:      "tmux",
		target:      target,
		contextFile: contextFile,
	}
}

// MarkTrigger records which channel the next turn came from, so the session
// side knows where to answer
func (r *tmuxRepo) MarkTrigger(ctx context.Context, source domain.Source) error {
	if r.contextFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.contextFile), 0755); err != nil {
		return err
	}
	return os.WriteFile(r.contextFile, []byte(source.Label()), 0644)
}

// SendKeys types text literally into the pane
func (r *tmuxRepo) SendKeys(ctx context.Context, text string) error {
	return r.run(ctx, "send-keys", "-t", r.target, "-l", text)
}

// Submit presses Enter
func (r *tmuxRepo) Submit(ctx context.Context) error {
	return r.run(ctx, "send-keys", "-t", r.target, "Enter")
}

func (r *tmuxRepo) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("tmux %s: %w: %s", args[0], err, msg)
		}
		return fmt.Errorf("tmux %s: %w", args[0], err)
	}
	return nil
}
