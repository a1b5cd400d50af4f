package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/devricklin/telegram-session-relay/internal/biz/usecase"
	"github.com/devricklin/telegram-session-relay/internal/data"
)

func newChatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chats",
		Short: "List known chats and their roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			registry, err := data.NewRegistryRepo(cfg.RegistryPath())
			if err != nil {
				return err
			}
			records, err := registry.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no chats registered")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CHAT ID\tSTATE\tNAME\tFIRST SEEN")
			for _, r := range records {
				name := r.Name
				if name == "" {
					name = "-"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.ChatID, r.State, name, humanize.Time(r.CreatedAt))
			}
			return w.Flush()
		},
	}
}

func newAllowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "allow <chat-id>",
		Short: "Promote a chat to Allowed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chat id %q", args[0])
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			registry, err := data.NewRegistryRepo(cfg.RegistryPath())
			if err != nil {
				return err
			}
			uc := usecase.NewRegistryUsecase(registry, nil, nil, cfg.ToNotices(), nil)
			if err := uc.Promote(cmd.Context(), target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "chat %d allowed\n", target)
			return nil
		},
	}
}
