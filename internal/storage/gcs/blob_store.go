// Package gcs provides a BlobStore backed by Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"cloud.google.com/go/storage"

	blob "github.com/JakeFAU/mbfc-scraper/internal/storage"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
}

// BlobStore reads and replaces objects in a configured GCS bucket. Writes carry a
// generation precondition taken from the last read or write of the same object, so a
// concurrent writer from another process causes PutObject to fail instead of silently
// overwriting its data.
type BlobStore struct {
	client *storage.Client
	bucket string

	mu          sync.Mutex
	generations map[string]int64
}

// New creates a GCS-backed blob store.
func New(client *storage.Client, cfg Config) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &BlobStore{
		client:      client,
		bucket:      cfg.Bucket,
		generations: make(map[string]int64),
	}, nil
}

// GetObject downloads the object and records its generation.
func (s *BlobStore) GetObject(ctx context.Context, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("path is required")
	}
	reader, err := s.client.Bucket(s.bucket).Object(path).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			s.setGeneration(path, 0)
			return nil, blob.ErrNotFound
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read object: %w", err)
	}
	s.setGeneration(path, reader.Attrs.Generation)
	return data, nil
}

// PutObject uploads data to the configured bucket and returns a gs:// URI.
func (s *BlobStore) PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	obj := s.client.Bucket(s.bucket).Object(path)
	if gen, known := s.generation(path); known {
		obj = obj.If(preconditionFor(gen))
	}
	writer := obj.NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := io.Copy(writer, r); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	s.setGeneration(path, writer.Attrs().Generation)
	return fmt.Sprintf("gs://%s/%s", s.bucket, path), nil
}

func preconditionFor(gen int64) storage.Conditions {
	if gen == 0 {
		return storage.Conditions{DoesNotExist: true}
	}
	return storage.Conditions{GenerationMatch: gen}
}

func (s *BlobStore) generation(path string) (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen, ok := s.generations[path]
	return gen, ok
}

func (s *BlobStore) setGeneration(path string, gen int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[path] = gen
}
