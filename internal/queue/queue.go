// Package queue defines the task shape and queue contract that feed the worker pool.
package queue

import (
	"context"
	"errors"

	"github.com/JakeFAU/mbfc-scraper/internal/scrape"
)

// ErrClosed is returned by Dequeue once a closed queue has been drained.
var ErrClosed = errors.New("queue closed")

// Task is one WorkItem tagged with its position in the chunk.
type Task struct {
	Index int
	Item  scrape.WorkItem
}

// Queue hands tasks to workers.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Dequeue(ctx context.Context) (Task, error)
	Close()
}
