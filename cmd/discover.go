package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/mbfc-scraper/internal/app"
	"github.com/JakeFAU/mbfc-scraper/internal/discovery"
)

// newDiscoverCmd creates the 'discover' subcommand, which builds the input table from
// the category listing pages.
func newDiscoverCmd() *cobra.Command {
	var categories []string
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Build the input table from category listings",
		Long: `Visits each configured category listing, collects every listed source with
its page link and writes them to discovery.output_path as Group,Link,Type rows.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			cfg := appInstance.Config()
			logger := appInstance.Logger()
			if len(categories) == 0 {
				categories = cfg.Discovery.Categories
			}

			d, err := discovery.New(discovery.Config{
				BaseURL:       cfg.Discovery.BaseURL,
				Categories:    categories,
				TableSelector: cfg.Discovery.TableSelector,
				UserAgent:     cfg.HTTP.UserAgent,
				Timeout:       cfg.HTTP.Timeout,
			}, logger.Named("discovery"))
			if err != nil {
				return fmt.Errorf("init discovery: %w", err)
			}
			entries, err := d.Discover(cmd.Context())
			if err != nil {
				return fmt.Errorf("discover sources: %w", err)
			}

			blobs, name, err := app.OpenFile(cfg.Discovery.OutputPath)
			if err != nil {
				return err
			}
			written, err := discovery.Save(cmd.Context(), blobs, name, entries, cfg.Discovery.PerCategory)
			if err != nil {
				return fmt.Errorf("save discovery output: %w", err)
			}
			logger.Info("Discover command finished.",
				zap.Int("sources", len(entries)),
				zap.Strings("files", written),
			)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&categories, "category", nil, "category to crawl (repeatable; default discovery.categories)")
	return cmd
}
