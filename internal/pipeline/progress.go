package pipeline

import (
	"sync"
	"time"
)

// Run states reported by Progress.
const (
	StateIdle        = "idle"
	StateRunning     = "running"
	StateCompleted   = "completed"
	StateInterrupted = "interrupted"
	StateFailed      = "failed"
)

// Snapshot is a point-in-time view of a run.
type Snapshot struct {
	RunID       string    `json:"run_id,omitempty"`
	State       string    `json:"state"`
	Total       int       `json:"total"`
	Pending     int       `json:"pending"`
	Succeeded   int       `json:"succeeded"`
	Failed      int       `json:"failed"`
	Chunks      int       `json:"chunks_persisted"`
	ChunksTotal int       `json:"chunks_total"`
	StartedAt   time.Time `json:"started_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
	Error       string    `json:"error,omitempty"`
}

// Progress tracks the current run for the status endpoint. It is safe for concurrent use.
type Progress struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewProgress returns an idle tracker.
func NewProgress() *Progress {
	return &Progress{snap: Snapshot{State: StateIdle}}
}

// Snapshot returns a copy of the current state.
func (p *Progress) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

func (p *Progress) begin(runID string, total, pending, chunks int, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = Snapshot{
		RunID:       runID,
		State:       StateRunning,
		Total:       total,
		Pending:     pending,
		ChunksTotal: chunks,
		StartedAt:   now,
		UpdatedAt:   now,
	}
}

func (p *Progress) chunkPersisted(succeeded, failed int, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.Succeeded += succeeded
	p.snap.Failed += failed
	p.snap.Pending -= succeeded + failed
	p.snap.Chunks++
	p.snap.UpdatedAt = now
}

func (p *Progress) finish(state string, err error, now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap.State = state
	p.snap.UpdatedAt = now
	if err != nil {
		p.snap.Error = err.Error()
	}
}
