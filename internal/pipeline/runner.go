// Package pipeline drives a scrape run: it computes pending work, processes it chunk by
// chunk through the worker pool, and merges each chunk into the checkpoint table before
// moving on.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/mbfc-scraper/internal/clock/system"
	"github.com/JakeFAU/mbfc-scraper/internal/dispatcher"
	"github.com/JakeFAU/mbfc-scraper/internal/metrics"
	"github.com/JakeFAU/mbfc-scraper/internal/partition"
	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

// DefaultChunkSize is the number of URLs persisted together.
const DefaultChunkSize = 10

// Config controls a Runner.
type Config struct {
	ChunkSize int
	// Topic receives one notification per persisted chunk. Empty disables publishing.
	Topic string
}

// Summary describes a finished (or stopped) run.
type Summary struct {
	RunID     string
	Total     int
	Pending   int
	Succeeded int
	Failed    int
	Chunks    int
	Duration  time.Duration
}

// ChunkNotification is published after each chunk is persisted.
type ChunkNotification struct {
	RunID      string   `json:"run_id"`
	Chunk      int      `json:"chunk"`
	Rows       int      `json:"rows"`
	Failed     int      `json:"failed"`
	URLs       []string `json:"urls"`
	FailedURLs []string `json:"failed_urls,omitempty"`
	Timestamp  string   `json:"timestamp"`
}

// Runner is the orchestrator for one scrape run.
type Runner struct {
	cfg        Config
	store      scrape.CheckpointStore
	dispatcher *dispatcher.Dispatcher
	publisher  scrape.Publisher
	ids        scrape.IDGenerator
	clock      scrape.Clock
	progress   *Progress
	logger     *zap.Logger
}

// Option customizes a Runner.
type Option func(*Runner)

// WithPublisher enables chunk notifications.
func WithPublisher(p scrape.Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithIDGenerator sets the run ID source.
func WithIDGenerator(ids scrape.IDGenerator) Option {
	return func(r *Runner) { r.ids = ids }
}

// WithClock overrides the wall clock.
func WithClock(c scrape.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithProgress shares a progress tracker, typically with the status server.
func WithProgress(p *Progress) Option {
	return func(r *Runner) { r.progress = p }
}

// New constructs a Runner.
func New(
	cfg Config,
	store scrape.CheckpointStore,
	d *dispatcher.Dispatcher,
	logger *zap.Logger,
	opts ...Option,
) (*Runner, error) {
	if store == nil {
		return nil, fmt.Errorf("checkpoint store is required")
	}
	if d == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		cfg:        cfg,
		store:      store,
		dispatcher: d,
		clock:      system.New(),
		progress:   NewProgress(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Progress returns the tracker updated by Run.
func (r *Runner) Progress() *Progress {
	return r.progress
}

// Run scrapes every input row not already checkpointed. Individual URL failures are
// counted and left pending for a later run. A checkpoint read or write failure stops
// the run and is returned. Cancelling ctx stops the run before the next chunk; an
// in-flight chunk is dropped, not merged.
func (r *Runner) Run(ctx context.Context, input []scrape.InputRow) (Summary, error) {
	start := r.clock.Now()
	summary := Summary{RunID: r.newRunID(), Total: len(input)}
	logger := r.logger.With(zap.String("run_id", summary.RunID))

	done, err := r.store.Load(ctx)
	if err != nil {
		err = fmt.Errorf("load checkpoint: %w", err)
		r.progress.finish(StateFailed, err, r.clock.Now())
		return summary, err
	}
	pending := partition.Pending(input, done)
	chunks := partition.Chunks(pending, r.cfg.ChunkSize)
	summary.Pending = len(pending)
	r.progress.begin(summary.RunID, len(input), len(pending), len(chunks), start)
	logger.Info("scrape run starting",
		zap.Int("total", len(input)),
		zap.Int("checkpointed", len(done)),
		zap.Int("pending", len(pending)),
		zap.Int("chunks", len(chunks)),
		zap.Int("workers", r.dispatcher.Workers()),
	)

	var runErr error
	for i, chunk := range chunks {
		if ctx.Err() != nil {
			runErr = fmt.Errorf("run interrupted before chunk %d: %w", i+1, ctx.Err())
			break
		}
		succeeded, failed, err := r.runChunk(ctx, logger, summary.RunID, i+1, len(chunks), chunk)
		if err != nil {
			runErr = err
			break
		}
		summary.Succeeded += succeeded
		summary.Failed += failed
		summary.Chunks++
	}

	summary.Duration = r.clock.Now().Sub(start)
	state := StateCompleted
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled), errors.Is(runErr, context.DeadlineExceeded):
		state = StateInterrupted
	default:
		state = StateFailed
	}
	r.progress.finish(state, runErr, r.clock.Now())
	logger.Info("scrape run finished",
		zap.String("state", state),
		zap.Int("total", summary.Total),
		zap.Int("pending", summary.Pending),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("chunks", summary.Chunks),
		zap.Duration("duration", summary.Duration),
	)
	return summary, runErr
}

func (r *Runner) runChunk(
	ctx context.Context,
	logger *zap.Logger,
	runID string,
	index, total int,
	chunk []scrape.InputRow,
) (int, int, error) {
	outcomes, err := r.dispatcher.RunChunk(ctx, partition.WorkItems(chunk))
	if err != nil {
		return 0, 0, fmt.Errorf("chunk %d: %w", index, err)
	}

	rows := make([]scrape.Row, 0, len(outcomes))
	var failedURLs []string
	for i, out := range outcomes {
		if !out.Success() {
			failedURLs = append(failedURLs, out.URL)
			continue
		}
		rows = append(rows, scrape.Row{URL: out.URL, Record: out.Record, Meta: chunk[i].Meta})
	}

	// Once outcomes are in hand the merge runs to completion regardless of ctx.
	if len(rows) > 0 {
		if err := r.store.Merge(context.WithoutCancel(ctx), rows); err != nil {
			return 0, 0, fmt.Errorf("persist chunk %d: %w", index, err)
		}
	}
	metrics.ObserveChunkPersisted()
	r.progress.chunkPersisted(len(rows), len(failedURLs), r.clock.Now())
	logger.Info("chunk persisted",
		zap.Int("chunk", index),
		zap.Int("of", total),
		zap.Int("rows", len(rows)),
		zap.Int("failed", len(failedURLs)),
		zap.Strings("failed_urls", failedURLs),
	)
	r.notify(ctx, logger, runID, index, rows, failedURLs)
	return len(rows), len(failedURLs), nil
}

func (r *Runner) notify(
	ctx context.Context,
	logger *zap.Logger,
	runID string,
	index int,
	rows []scrape.Row,
	failedURLs []string,
) {
	if r.publisher == nil || r.cfg.Topic == "" {
		return
	}
	urls := make([]string, len(rows))
	for i, row := range rows {
		urls[i] = row.URL
	}
	payload := ChunkNotification{
		RunID:      runID,
		Chunk:      index,
		Rows:       len(rows),
		Failed:     len(failedURLs),
		URLs:       urls,
		FailedURLs: failedURLs,
		Timestamp:  r.clock.Now().Format(time.RFC3339),
	}
	id, err := r.publisher.Publish(context.WithoutCancel(ctx), r.cfg.Topic, payload)
	if err != nil {
		logger.Warn("chunk notification failed", zap.Int("chunk", index), zap.Error(err))
		return
	}
	logger.Debug("chunk notification published", zap.Int("chunk", index), zap.String("message_id", id))
}

func (r *Runner) newRunID() string {
	if r.ids == nil {
		return ""
	}
	id, err := r.ids.NewID()
	if err != nil {
		r.logger.Warn("run id generation failed", zap.Error(err))
		return ""
	}
	return id
}
