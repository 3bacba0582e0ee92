package checkpoint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
	"github.com/JakeFAU/mbfc-scraper/internal/storage"
)

// TableStore keeps the checkpoint table as a single CSV object in a blob store. Every
// Merge rewrites the whole object through the store's atomic replace.
type TableStore struct {
	mu     sync.Mutex
	blobs  storage.BlobStore
	path   string
	codec  Codec
	logger *zap.Logger
}

var _ scrape.CheckpointStore = (*TableStore)(nil)

// NewTableStore wires a TableStore over blobs at path.
func NewTableStore(blobs storage.BlobStore, path string, codec Codec, logger *zap.Logger) (*TableStore, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if path == "" {
		return nil, fmt.Errorf("checkpoint path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TableStore{
		blobs:  blobs,
		path:   path,
		codec:  codec,
		logger: logger,
	}, nil
}

// Load returns the URLs already present in the table. A missing table is empty.
func (s *TableStore) Load(ctx context.Context) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return Keys(rows), nil
}

// Rows returns the full table.
func (s *TableStore) Rows(ctx context.Context) ([]scrape.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx)
}

// Merge reads the current table, appends rows, collapses duplicate URLs, and writes the
// result back in one replace.
func (s *TableStore) Merge(ctx context.Context, rows []scrape.Row) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(ctx)
	if err != nil {
		return err
	}
	merged := Merge(existing, rows)
	data, err := s.codec.Encode(merged)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	uri, err := s.blobs.PutObject(ctx, s.path, "text/csv", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("write checkpoint %s: %w", s.path, err)
	}
	s.logger.Debug("checkpoint written",
		zap.String("uri", uri),
		zap.Int("incoming", len(rows)),
		zap.Int("total", len(merged)),
	)
	return nil
}

// Close is a no-op; the blob store owns its own lifecycle.
func (s *TableStore) Close() error {
	return nil
}

func (s *TableStore) read(ctx context.Context) ([]scrape.Row, error) {
	data, err := s.blobs.GetObject(ctx, s.path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read checkpoint %s: %w", s.path, err)
	}
	rows, err := s.codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", s.path, err)
	}
	return rows, nil
}
