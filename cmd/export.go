package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/mbfc-scraper/internal/checkpoint"
	"github.com/JakeFAU/mbfc-scraper/internal/export"
)

// newExportCmd creates the 'export' subcommand, which writes the checkpoint table to
// an XLSX workbook.
func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the checkpoint table to XLSX",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if out == "" {
				return errors.New("--out is required")
			}
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := appInstance.Config()

			store, err := appInstance.OpenCheckpoint(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := store.Rows(cmd.Context())
			if err != nil {
				return fmt.Errorf("read checkpoint: %w", err)
			}
			codec := checkpoint.Codec{KeyColumn: cfg.Checkpoint.KeyColumn}
			if err := export.Save(out, rows, codec); err != nil {
				return fmt.Errorf("export checkpoint: %w", err)
			}
			appInstance.Logger().Info("Export command finished.",
				zap.String("path", out),
				zap.Int("rows", len(rows)),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "destination .xlsx file")
	return cmd
}
