package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/devricklin/telegram-session-relay/internal/biz/usecase"
	"github.com/devricklin/telegram-session-relay/internal/conf"
	"github.com/devricklin/telegram-session-relay/internal/data"
	"github.com/devricklin/telegram-session-relay/internal/logging"
	"github.com/devricklin/telegram-session-relay/internal/mcp"
)

func main() {
	cfg := conf.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// stdout carries the protocol
	logger, closer := logging.New(cfg.ToLoggingConfig(false))
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry, err := data.NewRegistryRepo(cfg.RegistryPath())
	if err != nil {
		log.Fatalf("Failed to open registry: %v", err)
	}
	transport, err := data.NewTelegramRepo(data.TelegramConfig{
		Token:       cfg.Telegram.BotToken,
		APIEndpoint: cfg.Telegram.APIEndpoint,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to connect to Telegram: %v", err)
	}

	notices := cfg.ToNotices()
	registryUC := usecase.NewRegistryUsecase(registry, transport, nil, notices, logger)

	opts := mcp.Options{
		Notifier: transport,
		Files:    transport,
		Owner: func(ctx context.Context) (int64, bool, error) {
			if cfg.Telegram.OwnerChatID != 0 {
				return cfg.Telegram.OwnerChatID, true, nil
			}
			return registryUC.OwnerChatID(ctx)
		},
		StopTyping: func() error { return data.RequestStopTyping(cfg.Home) },
		Logger:     logger,
	}
	if cfg.Peer.URL != "" {
		opts.Peer = usecase.NewPeerUsecase(data.NewPeerRepo(cfg.Peer.URL, cfg.Bridge.APIKey, 0), cfg.Peer.Sender, registryUC, transport, notices, logger)
	}

	if err := mcp.NewServer(opts).Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("mcp server stopped", "error", err)
		os.Exit(1)
	}
}
