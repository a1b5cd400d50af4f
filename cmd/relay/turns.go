package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/devricklin/telegram-session-relay/internal/data"
)

func newTurnsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "turns",
		Short: "Show recent injection attempts from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			journal, err := data.NewJournalRepo(cfg.JournalPath())
			if err != nil {
				return err
			}
			defer journal.Close()

			entries, err := journal.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WHEN\tSOURCE\tCHAT\tSENDER\tFRAGMENTS\tSIZE\tRESULT")
			for _, e := range entries {
				result := "delivered"
				if !e.Delivered {
					result = "failed: " + e.Error
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\t%s\n",
					humanize.Time(e.CreatedAt), e.Source, e.ChatID, e.Sender,
					e.Fragments, humanize.Bytes(uint64(e.Bytes)), result)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}
