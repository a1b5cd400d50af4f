package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/devricklin/telegram-session-relay/internal/api"
	"github.com/devricklin/telegram-session-relay/internal/biz/usecase"
	"github.com/devricklin/telegram-session-relay/internal/data"
	"github.com/devricklin/telegram-session-relay/internal/logging"
	"github.com/devricklin/telegram-session-relay/internal/server"
	"github.com/devricklin/telegram-session-relay/internal/service"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the relay (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closer := logging.New(cfg.ToLoggingConfig(true))
	defer closer.Close()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize repository layer
	repos, err := data.NewRepositories(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create repositories: %w", err)
	}
	defer repos.Close()

	logger.Info("relay starting",
		"home", cfg.Home,
		"tmux_target", cfg.Session.TmuxTarget,
		"files_dir", cfg.Telegram.FilesDir,
	)

	// Initialize usecase layer
	notices := cfg.ToNotices()
	registryUC := usecase.NewRegistryUsecase(repos.Registry, repos.Transport, repos.Config, notices, logger)
	if err := registryUC.Seed(ctx, cfg.SeedChats()); err != nil {
		return fmt.Errorf("failed to seed registry: %w", err)
	}

	limiter := usecase.NewRateLimiter(cfg.ToRateLimitConfig())
	attachments := usecase.NewAttachmentUsecase(repos.Transport, repos.Transcriber, cfg.ToAttachmentConfig(), notices, logger)
	typing := usecase.NewTypingController(repos.Transport, cfg.ToTypingConfig(), logger)
	sink := usecase.NewInjectionSink(repos.Session, repos.Journal, logger)

	cursor, err := repos.Journal.LoadCursor(ctx)
	if err != nil {
		logger.Warn("failed to load cursor, starting from 0", "error", err)
		cursor = 0
	}
	poller := usecase.NewPoller(repos.Transport, cursor, usecase.DefaultPollerConfig(), logger)

	// Initialize service layer
	relaySvc := service.NewRelayService(registryUC, limiter, attachments, typing, sink, repos.Transport, notices, logger)

	scheduler := service.NewMaintenanceScheduler(repos.Journal, 0, 0, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	watcher, err := data.NewMarkerWatcher(cfg.Home, typing.RequestStop, logger)
	if err != nil {
		return fmt.Errorf("failed to create marker watcher: %w", err)
	}

	// Initialize server layer
	srv := server.NewTelegramServer(poller, repos.Journal, relaySvc, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return watcher.Run(gctx) })

	if cfg.Bridge.APIKey != "" {
		apiServer := api.NewServer(relaySvc, cfg.Bridge.APIKey, cfg.BindAddress(ctx), logger)
		g.Go(func() error {
			// A listener failure disables peering, not the relay
			if err := apiServer.Run(gctx); err != nil {
				logger.Error("peer listener stopped", "error", err)
			}
			return nil
		})
	} else {
		logger.Info("BRIDGE_API_KEY not set, peer listener disabled")
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	relaySvc.Shutdown()

	logger.Info("relay stopped")
	return err
}
