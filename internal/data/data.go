package data

import (
	"fmt"
	"log/slog"

	"github.com/devricklin/telegram-session-relay/internal/biz/repo"
	"github.com/devricklin/telegram-session-relay/internal/conf"
)

// Repositories contains all repositories
type Repositories struct {
	Transport   repo.TransportRepo
	Registry    repo.RegistryRepo
	Config      repo.ConfigRepo
	Session     repo.SessionRepo
	Transcriber repo.TranscriberRepo
	Journal     repo.JournalRepo
	Peer        repo.PeerRepo
}

// NewRepositories creates all repositories. It connects to Telegram, so an
// invalid token fails here.
func NewRepositories(cfg *conf.Config, logger *slog.Logger) (*Repositories, error) {
	registry, err := NewRegistryRepo(cfg.RegistryPath())
	if err != nil {
		return nil, err
	}

	journal, err := NewJournalRepo(cfg.JournalPath())
	if err != nil {
		return nil, err
	}

	transport, err := NewTelegramRepo(TelegramConfig{
		Token:       cfg.Telegram.BotToken,
		APIEndpoint: cfg.Telegram.APIEndpoint,
	}, logger)
	if err != nil {
		journal.Close()
		return nil, fmt.Errorf("telegram: %w", err)
	}

	return &Repositories{
		Transport: transport,
		Registry:  registry,
		Config:    NewEnvConfigRepo(cfg.EnvFile),
		Session:   NewTmuxRepo(cfg.Session.TmuxTarget, cfg.Session.RestartContextFile),
		Transcriber: NewWhisperRepo(WhisperConfig{
			BaseURL: cfg.Whisper.BaseURL,
			APIKey:  cfg.Whisper.APIKey,
			Model:   cfg.Whisper.Model,
		}, logger),
		Journal: journal,
		Peer:    NewPeerRepo(cfg.Peer.URL, cfg.Bridge.APIKey, 0),
	}, nil
}

// Close releases held resources
func (r *Repositories) Close() error {
	if r.Journal != nil {
		return r.Journal.Close()
	}
	return nil
}
