// Package dispatcher fans one chunk of work out to a fixed pool of workers.
package dispatcher

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/mbfc-scraper/internal/extract"
	"github.com/JakeFAU/mbfc-scraper/internal/queue"
	"github.com/JakeFAU/mbfc-scraper/internal/queue/memory"
	"github.com/JakeFAU/mbfc-scraper/internal/retry"
	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
	"github.com/JakeFAU/mbfc-scraper/internal/worker"
)

// DefaultWorkerFraction sizes the pool relative to the CPU count.
const DefaultWorkerFraction = 0.25

// Config controls pool sizing.
type Config struct {
	// Workers is the pool size. Zero derives it from WorkerFraction.
	Workers        int
	WorkerFraction float64
}

// Dispatcher runs chunks through a worker pool.
type Dispatcher struct {
	workers   int
	fetcher   scrape.Fetcher
	policy    *retry.Policy
	extractor *extract.Extractor
	clock     scrape.Clock
	logger    *zap.Logger
}

// New creates a Dispatcher.
func New(
	cfg Config,
	fetcher scrape.Fetcher,
	policy *retry.Policy,
	extractor *extract.Extractor,
	clock scrape.Clock,
	logger *zap.Logger,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		workers:   PoolSize(cfg, runtime.NumCPU()),
		fetcher:   fetcher,
		policy:    policy,
		extractor: extractor,
		clock:     clock,
		logger:    logger,
	}
}

// PoolSize resolves the worker count: an explicit count wins, otherwise
// max(floor(cpus*fraction), 1).
func PoolSize(cfg Config, cpus int) int {
	if cfg.Workers > 0 {
		return cfg.Workers
	}
	fraction := cfg.WorkerFraction
	if fraction <= 0 || fraction > 1 {
		fraction = DefaultWorkerFraction
	}
	return max(int(float64(cpus)*fraction), 1)
}

// Workers returns the pool size.
func (d *Dispatcher) Workers() int {
	return d.workers
}

// RunChunk processes every item and returns outcomes in input order, whatever order
// workers finish in. If ctx ends before the chunk completes, the partial results are
// discarded and the context error is returned.
func (d *Dispatcher) RunChunk(ctx context.Context, items []scrape.WorkItem) ([]scrape.Outcome, error) {
	if len(items) == 0 {
		return nil, nil
	}
	q := memory.NewQueue(len(items))
	for i, item := range items {
		if err := q.Enqueue(ctx, queue.Task{Index: i, Item: item}); err != nil {
			return nil, fmt.Errorf("queue enqueue: %w", err)
		}
	}
	q.Close()

	outcomes := make([]scrape.Outcome, len(items))
	deliver := func(task queue.Task, outcome scrape.Outcome) {
		// Each index is written by exactly one worker.
		outcomes[task.Index] = outcome
	}

	g, gctx := errgroup.WithContext(ctx)
	poolSize := min(d.workers, len(items))
	for id := 1; id <= poolSize; id++ {
		w := worker.New(id, q, d.fetcher, d.policy, d.extractor, d.clock, d.logger)
		g.Go(func() error {
			return w.Run(gctx, deliver)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run chunk: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run chunk: %w", err)
	}
	return outcomes, nil
}
