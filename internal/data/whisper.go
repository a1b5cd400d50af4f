package data

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/devricklin/telegram-session-relay/internal/biz/domain"
	"github.com/devricklin/telegram-session-relay/internal/biz/repo"
	"github.com/devricklin/telegram-session-relay/internal/logging"
)

// WhisperConfig points at an OpenAI-compatible transcription server
type WhisperConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// whisperRepo transcribes audio files. The model is checked once, on first
// use; if that fails transcription stays disabled for the process lifetime.
type whisperRepo struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger

	once    sync.Once
	loadErr error
}

// NewWhisperRepo creates a transcriber repository
func NewWhisperRepo(cfg WhisperConfig, logger *slog.Logger) repo.TranscriberRepo {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = openai.Whisper1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &whisperRepo{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		timeout: timeout,
		logger:  logging.Component(logger, logging.CompAttachment),
	}
}

func (r *whisperRepo) load(ctx context.Context) error {
	r.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if _, err := r.client.GetModel(ctx, r.model); err != nil {
			r.loadErr = fmt.Errorf("%w: model %s: %v", domain.ErrTranscriptionUnavailable, r.model, err)
			r.logger.Error("transcription model unavailable, voice messages disabled", "model", r.model, "error", err)
			return
		}
		r.logger.Info("transcription model ready", "model", r.model)
	})
	return r.loadErr
}

// Transcribe returns the text spoken in the audio file at path
func (r *whisperRepo) Transcribe(ctx context.Context, path string) (string, error) {
	if err := r.load(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    r.model,
		FilePath: path,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
