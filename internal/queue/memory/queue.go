// Package memory provides an in-process bounded task queue.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/mbfc-scraper/internal/queue"
)

// Queue is a bounded in-memory queue with context-aware operations.
type Queue struct {
	ch      chan queue.Task
	closeMu sync.Mutex
	closed  bool
}

var _ queue.Queue = (*Queue)(nil)

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{
		ch: make(chan queue.Task, capacity),
	}
}

// Enqueue pushes a task into the queue or returns if the context ends.
func (q *Queue) Enqueue(ctx context.Context, task queue.Task) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- task:
		return nil
	}
}

// Dequeue pops the next task, respecting context cancellation. A closed queue keeps
// yielding buffered tasks before returning queue.ErrClosed.
func (q *Queue) Dequeue(ctx context.Context) (queue.Task, error) {
	select {
	case <-ctx.Done():
		return queue.Task{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case task, ok := <-q.ch:
		if !ok {
			return queue.Task{}, queue.ErrClosed
		}
		return task, nil
	}
}

// Close closes the underlying channel. Closing twice is safe.
func (q *Queue) Close() {
	q.closeMu.Lock()
	defer q.closeMu.Unlock()
	if q.closed {
		return
	}
	close(q.ch)
	q.closed = true
}
