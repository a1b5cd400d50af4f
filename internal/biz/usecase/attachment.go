package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
	"github.com/devricklin/telegram-session-relay/internal/biz/repo"
	"github.com/devricklin/telegram-session-relay/internal/logging"
)

// AttachmentConfig controls attachment handling
type AttachmentConfig struct {
	Dir      string // local download directory
	MaxBytes int64  // size cap, checked before download
	Retry    RetryPolicy
}

// DefaultAttachmentConfig returns the 20 MB cap used by the Telegram Bot API
func DefaultAttachmentConfig(dir string) AttachmentConfig {
	return AttachmentConfig{
		Dir:      dir,
		MaxBytes: 20 * 1024 * 1024,
		Retry:    DefaultRetryPolicy(),
	}
}

// AttachmentUsecase turns non-text updates into fragment text
type AttachmentUsecase struct {
	transport   repo.TransportRepo
	transcriber repo.TranscriberRepo
	config      AttachmentConfig
	notices     Notices
	logger      *slog.Logger
	now         func() time.Time
}

// NewAttachmentUsecase creates a new attachment usecase.
// transcriber may be nil, in which case voice messages are reported as failed.
func NewAttachmentUsecase(transport repo.TransportRepo, transcriber repo.TranscriberRepo, cfg AttachmentConfig, notices Notices, logger *slog.Logger) *AttachmentUsecase {
	return &AttachmentUsecase{
		transport:   transport,
		transcriber: transcriber,
		config:      cfg,
		notices:     notices.WithDefaults(),
		logger:      logging.Component(logger, logging.CompAttachment),
		now:         time.Now,
	}
}

// Resolve returns the fragment text for an update. Text updates pass through.
// When ok is false the update is dropped; the chat has already been told why.
func (uc *AttachmentUsecase) Resolve(ctx context.Context, u domain.Update) (string, bool) {
	if u.HasText() {
		return u.Text, true
	}
	a := u.Attachment
	if a == nil {
		uc.notify(ctx, u.ChatID, uc.notices.Unsupported)
		return "", false
	}

	if uc.config.MaxBytes > 0 && a.Size > uc.config.MaxBytes {
		uc.logger.Warn("attachment over size limit", "chat_id", u.ChatID, "kind", a.Kind, "size", a.Size)
		uc.notify(ctx, u.ChatID, Render(uc.notices.FileTooLarge,
			"size", humanize.IBytes(uint64(a.Size)),
			"limit", humanize.IBytes(uint64(uc.config.MaxBytes)),
		))
		return "", false
	}

	if a.IsVoice() {
		uc.notify(ctx, u.ChatID, uc.notices.Transcribing)
	} else {
		uc.notify(ctx, u.ChatID, Render(uc.notices.Downloading, "file", displayName(a)))
	}

	path, err := uc.download(ctx, a)
	if err != nil {
		uc.logger.Error("attachment download failed", "chat_id", u.ChatID, "kind", a.Kind, "error", err)
		if errors.Is(err, domain.ErrFileTooLarge) {
			uc.notify(ctx, u.ChatID, Render(uc.notices.FileTooLarge,
				"size", "over "+humanize.IBytes(uint64(uc.config.MaxBytes)),
				"limit", humanize.IBytes(uint64(uc.config.MaxBytes)),
			))
		} else {
			uc.notify(ctx, u.ChatID, uc.notices.DownloadFailed)
		}
		return "", false
	}

	if a.IsVoice() {
		return uc.transcribe(ctx, u, path)
	}

	uc.logger.Info("attachment saved", "chat_id", u.ChatID, "kind", a.Kind, "path", path)
	text := Render(uc.notices.FileReference, "path", path)
	if u.Caption != "" {
		text += Render(uc.notices.FileCaption, "caption", u.Caption)
	}
	return text, true
}

func (uc *AttachmentUsecase) transcribe(ctx context.Context, u domain.Update, path string) (string, bool) {
	if uc.transcriber == nil {
		uc.notify(ctx, u.ChatID, uc.notices.TranscriptionFailed)
		return "", false
	}
	text, err := uc.transcriber.Transcribe(ctx, path)
	if err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			err = domain.ErrEmptyTranscript
		}
	}
	if err != nil {
		uc.logger.Error("transcription failed", "chat_id", u.ChatID, "path", path, "error", err)
		uc.notify(ctx, u.ChatID, uc.notices.TranscriptionFailed)
		return "", false
	}

	uc.logger.Info("voice transcribed", "chat_id", u.ChatID, "chars", len(text))
	if u.Caption != "" {
		text += " " + u.Caption
	}
	return text, true
}

// download fetches an attachment into the files directory and returns the local path
func (uc *AttachmentUsecase) download(ctx context.Context, a *domain.Attachment) (string, error) {
	var url string
	err := Retry(ctx, uc.config.Retry, uc.logger, "getFile", func(ctx context.Context) error {
		var err error
		url, err = uc.transport.FileURL(ctx, a.FileID)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to resolve file: %w", err)
	}

	var body io.ReadCloser
	err = Retry(ctx, uc.config.Retry, uc.logger, "download", func(ctx context.Context) error {
		var err error
		body, err = uc.transport.Fetch(ctx, url)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch file: %w", err)
	}
	defer body.Close()

	if err := os.MkdirAll(uc.config.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create files dir: %w", err)
	}
	path := filepath.Join(uc.config.Dir, uc.localName(a, url))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	var src io.Reader = body
	if uc.config.MaxBytes > 0 {
		src = io.LimitReader(body, uc.config.MaxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && uc.config.MaxBytes > 0 && n > uc.config.MaxBytes {
		err = domain.ErrFileTooLarge
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// localName builds "<timestamp>_<id>_<name>" so concurrent downloads never collide
func (uc *AttachmentUsecase) localName(a *domain.Attachment, url string) string {
	name := a.FileName
	if name == "" {
		name = string(a.Kind) + extOf(url)
	}
	name = unsafeName.ReplaceAllString(filepath.Base(name), "_")
	if name == "" || name == "." || name == ".." {
		name = string(a.Kind)
	}
	return fmt.Sprintf("%s_%s_%s", uc.now().Format("20060102_150405"), uuid.NewString()[:8], name)
}

func extOf(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return filepath.Ext(url)
}

func displayName(a *domain.Attachment) string {
	if a.FileName != "" {
		return a.FileName
	}
	return string(a.Kind)
}

func (uc *AttachmentUsecase) notify(ctx context.Context, chatID int64, text string) {
	if err := uc.transport.SendText(ctx, chatID, text); err != nil {
		uc.logger.Error("failed to notify chat", "chat_id", chatID, "error", err)
	}
}
