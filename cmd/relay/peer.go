package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devricklin/telegram-session-relay/internal/biz/usecase"
	"github.com/devricklin/telegram-session-relay/internal/data"
	"github.com/devricklin/telegram-session-relay/internal/logging"
)

func newPeerSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "peer-send <message...>",
		Short: "Send a message to the paired relay instance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, closer := logging.New(cfg.ToLoggingConfig(false))
			defer closer.Close()

			repos, err := data.NewRepositories(cfg, logger)
			if err != nil {
				return err
			}
			defer repos.Close()

			notices := cfg.ToNotices()
			registryUC := usecase.NewRegistryUsecase(repos.Registry, repos.Transport, repos.Config, notices, logger)
			peerUC := usecase.NewPeerUsecase(repos.Peer, cfg.Peer.Sender, registryUC, repos.Transport, notices, logger)

			if err := peerUC.Send(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		},
	}
}
