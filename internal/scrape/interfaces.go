package scrape

import (
	"context"
	"time"
)

// Fetcher acquires the visible text of the content region for one URL. A call is a
// single attempt; retries belong to the caller.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// CheckpointStore is the durable, deduplicated table keyed by URL. Merge is the sole
// mutator and is safe for concurrent callers.
type CheckpointStore interface {
	Load(ctx context.Context) (map[string]struct{}, error)
	Merge(ctx context.Context, rows []Row) error
	Rows(ctx context.Context) ([]Row, error)
	Close() error
}

// Publisher pushes notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
