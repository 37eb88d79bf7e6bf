package jobs

import (
	"context"
	"sync"
	"time"
)

// RunRecord captures one execution of a scheduled job.
type RunRecord struct {
	Job       string
	StartedAt time.Time
	Duration  time.Duration
	Err       string
	Manual    bool
}

// RunRecorder persists run records.
type RunRecorder interface {
	Record(ctx context.Context, run RunRecord) error
	List(ctx context.Context) ([]RunRecord, error)
}

// InMemoryRunRecorder keeps the most recent runs in memory.
type InMemoryRunRecorder struct {
	mu    sync.Mutex
	runs  []RunRecord
	limit int
}

// NewInMemoryRunRecorder keeps at most limit runs; limit <= 0 keeps 100.
func NewInMemoryRunRecorder(limit int) *InMemoryRunRecorder {
	if limit <= 0 {
		limit = 100
	}
	return &InMemoryRunRecorder{limit: limit}
}

// Record stores run, dropping the oldest entry when full.
func (r *InMemoryRunRecorder) Record(_ context.Context, run RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	if over := len(r.runs) - r.limit; over > 0 {
		r.runs = append([]RunRecord(nil), r.runs[over:]...)
	}
	return nil
}

// List returns the recorded runs, oldest first.
func (r *InMemoryRunRecorder) List(context.Context) ([]RunRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]RunRecord, len(r.runs))
	copy(out, r.runs)
	return out, nil
}

// Runs is List without the error.
func (r *InMemoryRunRecorder) Runs() []RunRecord {
	runs, _ := r.List(context.Background())
	return runs
}
