package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/mbfc-scraper/internal/partition"
)

// newStatusCmd creates the 'status' subcommand, which reports checkpoint coverage of
// the configured input.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show checkpointed and pending URL counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := appInstance.Config()

			store, err := appInstance.OpenCheckpoint(cmd.Context())
			if err != nil {
				return err
			}
			done, err := store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load checkpoint: %w", err)
			}
			rows, err := loadInput(cmd.Context(), cfg.Input)
			if err != nil {
				return err
			}
			pending := partition.Pending(rows, done)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "input:        %d\n", len(rows))
			fmt.Fprintf(out, "checkpointed: %d\n", len(done))
			fmt.Fprintf(out, "pending:      %d\n", len(pending))
			fmt.Fprintf(out, "chunks:       %d\n", len(partition.Chunks(pending, cfg.Scraper.ChunkSize)))
			return nil
		},
	}
}
