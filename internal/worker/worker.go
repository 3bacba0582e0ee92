// Package worker runs one WorkItem end-to-end: retried fetch, then field extraction.
package worker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/mbfc-scraper/internal/clock/system"
	"github.com/JakeFAU/mbfc-scraper/internal/extract"
	"github.com/JakeFAU/mbfc-scraper/internal/metrics"
	"github.com/JakeFAU/mbfc-scraper/internal/queue"
	"github.com/JakeFAU/mbfc-scraper/internal/retry"
	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

// Deliver receives each finished task with its outcome.
type Deliver func(task queue.Task, outcome scrape.Outcome)

// Worker consumes queue tasks and executes the fetch pipeline. Workers share nothing
// mutable; every fetch attempt acquires its own rendering context inside the Fetcher.
type Worker struct {
	id        int
	queue     queue.Queue
	fetcher   scrape.Fetcher
	policy    *retry.Policy
	extractor *extract.Extractor
	clock     scrape.Clock
	logger    *zap.Logger
}

// New constructs a Worker.
func New(
	id int,
	q queue.Queue,
	fetcher scrape.Fetcher,
	policy *retry.Policy,
	extractor *extract.Extractor,
	clock scrape.Clock,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = system.New()
	}
	if policy == nil {
		policy = retry.New(retry.DefaultConfig(), logger)
	}
	if extractor == nil {
		extractor = extract.New(logger)
	}
	return &Worker{
		id:        id,
		queue:     q,
		fetcher:   fetcher,
		policy:    policy,
		extractor: extractor,
		clock:     clock,
		logger:    logger.With(zap.Int("worker", id)),
	}
}

// Run blocks, consuming tasks until the queue is closed and drained or ctx ends.
func (w *Worker) Run(ctx context.Context, deliver Deliver) error {
	for {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) {
				return nil
			}
			if ctx.Err() != nil {
				return fmt.Errorf("worker %d stopped: %w", w.id, ctx.Err())
			}
			return fmt.Errorf("worker %d dequeue: %w", w.id, err)
		}
		w.logger.Debug("dequeued task", zap.Int("index", task.Index), zap.String("url", task.Item.URL))
		deliver(task, w.Process(ctx, task.Item))
	}
}

// Process fetches item with retries and extracts its record. Fetch failures become a
// failed Outcome; they never escape as errors.
func (w *Worker) Process(ctx context.Context, item scrape.WorkItem) scrape.Outcome {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	logger := w.logger.With(zap.String("url", item.URL))
	if w.fetcher == nil {
		logger.Error("no fetcher configured")
		metrics.ObserveURL(false)
		return scrape.Failed(item.URL, errors.New("no fetcher configured"))
	}

	text, err := w.policy.Do(ctx, item.URL, func(attemptCtx context.Context) (string, error) {
		return w.fetch(attemptCtx, item.URL)
	})
	if err != nil {
		logger.Warn("url failed", zap.Error(err))
		metrics.ObserveURL(false)
		return scrape.Failed(item.URL, err)
	}

	record := w.extractor.Extract(item.URL, text)
	for _, f := range record.Missing() {
		metrics.ObserveMissingField(f.Label())
	}
	metrics.ObserveURL(true)
	logger.Debug("url processed", zap.Int("missing_fields", len(record.Missing())))
	return scrape.Succeeded(item.URL, record)
}

func (w *Worker) fetch(ctx context.Context, url string) (string, error) {
	start := w.clock.Now()
	text, err := w.fetcher.Fetch(ctx, url)
	metrics.ObserveFetchAttempt(err, w.clock.Now().Sub(start))
	if err != nil {
		return "", fmt.Errorf("fetch attempt: %w", err)
	}
	return text, nil
}
