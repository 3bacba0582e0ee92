package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/mbfc-scraper/internal/api"
	"github.com/JakeFAU/mbfc-scraper/internal/app"
	"github.com/JakeFAU/mbfc-scraper/internal/clock/system"
	"github.com/JakeFAU/mbfc-scraper/internal/config"
	"github.com/JakeFAU/mbfc-scraper/internal/dispatcher"
	"github.com/JakeFAU/mbfc-scraper/internal/extract"
	collyfetcher "github.com/JakeFAU/mbfc-scraper/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/mbfc-scraper/internal/fetcher/headless"
	"github.com/JakeFAU/mbfc-scraper/internal/id/uuid"
	"github.com/JakeFAU/mbfc-scraper/internal/input"
	"github.com/JakeFAU/mbfc-scraper/internal/pipeline"
	"github.com/JakeFAU/mbfc-scraper/internal/retry"
	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

type scrapeFlags struct {
	workers   int
	chunkSize int
	noBrowser bool
}

// newScrapeCmd creates the 'scrape' subcommand, which runs the resumable pipeline
// over every input URL not yet checkpointed.
func newScrapeCmd() *cobra.Command {
	var flags scrapeFlags
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Scrape pending source pages into the checkpoint",
		Long: `Loads the input table, skips URLs already present in the checkpoint and
scrapes the rest in chunks. Each finished chunk is merged into the checkpoint
before the next one starts, so an interrupted run resumes where it stopped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrapeCommand(cmd, flags)
		},
	}
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "worker pool size (overrides scraper.workers)")
	cmd.Flags().IntVar(&flags.chunkSize, "chunk-size", 0, "URLs persisted together (overrides scraper.chunk_size)")
	cmd.Flags().BoolVar(&flags.noBrowser, "no-browser", false, "fetch static HTML instead of rendering")
	return cmd
}

func runScrapeCommand(cmd *cobra.Command, flags scrapeFlags) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	cfg := appInstance.Config()
	logger := appInstance.Logger()
	if flags.workers > 0 {
		cfg.Scraper.Workers = flags.workers
	}
	if flags.chunkSize > 0 {
		cfg.Scraper.ChunkSize = flags.chunkSize
	}
	if flags.noBrowser {
		cfg.Headless.Enabled = false
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := appInstance.OpenCheckpoint(ctx)
	if err != nil {
		return err
	}
	rows, err := loadInput(ctx, cfg.Input)
	if err != nil {
		return err
	}

	fetcher, closeFetcher, err := buildFetcher(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFetcher()

	runner, err := buildRunner(ctx, appInstance, cfg, store, fetcher)
	if err != nil {
		return err
	}

	if cfg.Status.Addr != "" {
		serveCtx, cancelServe := context.WithCancel(ctx)
		defer cancelServe()
		server := api.NewServer(runner.Progress(), logger.Named("api"))
		go func() {
			if serr := server.ListenAndServe(serveCtx, cfg.Status.Addr); serr != nil {
				logger.Error("Status server failed", zap.Error(serr))
			}
		}()
	}

	summary, err := runner.Run(ctx, rows)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Scrape interrupted; rerun to resume from the checkpoint",
				zap.Int("chunks", summary.Chunks),
				zap.Int("succeeded", summary.Succeeded),
				zap.Error(err),
			)
			return nil
		}
		return fmt.Errorf("run scrape: %w", err)
	}

	logger.Info("Scrape command finished.",
		zap.String("run_id", summary.RunID),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
	)
	return nil
}

func loadInput(ctx context.Context, cfg config.InputConfig) ([]scrape.InputRow, error) {
	blobs, name, err := app.OpenFile(cfg.Path)
	if err != nil {
		return nil, err
	}
	rows, err := input.Load(ctx, blobs, name, cfg.KeyColumn)
	if err != nil {
		return nil, fmt.Errorf("load input %s: %w", cfg.Path, err)
	}
	return rows, nil
}

func buildFetcher(cfg config.Config, logger *zap.Logger) (scrape.Fetcher, func(), error) {
	if !cfg.Headless.Enabled {
		logger.Info("Using static HTML fetcher")
		f := collyfetcher.New(collyfetcher.Config{
			UserAgent: cfg.HTTP.UserAgent,
			Timeout:   cfg.HTTP.Timeout,
			Selector:  cfg.Headless.WaitSelector,
			DomainQPS: cfg.Headless.DomainQPS,
		})
		return f, func() {}, nil
	}
	f, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
		UserAgent:         cfg.HTTP.UserAgent,
		NavigationTimeout: cfg.Headless.NavTimeout,
		WaitSelector:      cfg.Headless.WaitSelector,
		DisableJavaScript: cfg.Headless.DisableJavaScript,
		DomainQPS:         cfg.Headless.DomainQPS,
		Logger:            logger.Named("headless"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init headless fetcher: %w", err)
	}
	return f, f.Close, nil
}

func buildRunner(
	ctx context.Context,
	appInstance *app.App,
	cfg config.Config,
	store scrape.CheckpointStore,
	fetcher scrape.Fetcher,
) (*pipeline.Runner, error) {
	logger := appInstance.Logger()
	clock := system.New()

	policy := retry.New(retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		MinDelay:    cfg.Retry.MinDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
	}, logger.Named("retry"))
	extractor := extract.New(logger.Named("extract"))
	d := dispatcher.New(dispatcher.Config{
		Workers:        cfg.Scraper.Workers,
		WorkerFraction: cfg.Scraper.WorkerFraction,
	}, fetcher, policy, extractor, clock, logger.Named("dispatcher"))

	opts := []pipeline.Option{
		pipeline.WithIDGenerator(uuid.New()),
		pipeline.WithClock(clock),
	}
	pub, err := appInstance.OpenPublisher(ctx)
	if err != nil {
		return nil, err
	}
	topic := ""
	if pub != nil {
		opts = append(opts, pipeline.WithPublisher(pub))
		topic = cfg.PubSub.TopicName
	}

	runner, err := pipeline.New(pipeline.Config{
		ChunkSize: cfg.Scraper.ChunkSize,
		Topic:     topic,
	}, store, d, logger.Named("pipeline"), opts...)
	if err != nil {
		return nil, fmt.Errorf("init pipeline: %w", err)
	}
	return runner, nil
}
