package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devricklin/telegram-session-relay/internal/conf"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "relay",
		Short:        "Relay Telegram chats into a tmux-hosted agent session",
		Long:         "relay long-polls a Telegram bot, authorizes and rate-limits chats, resolves attachments and types each turn into the agent session running in tmux. Without a subcommand it runs the relay.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newPeerSendCmd(),
		newChatsCmd(),
		newAllowCmd(),
		newTurnsCmd(),
	)

	return rootCmd
}

// loadConfig loads and validates the configuration
func loadConfig() (*conf.Config, error) {
	cfg := conf.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
