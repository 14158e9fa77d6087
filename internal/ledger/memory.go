package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/sceneforge/api/internal/model"
)

// Memory is an in-process Ledger. Entries are retained for the process
// lifetime; suitable for single-replica deployments and tests.
type Memory struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{jobs: make(map[string]*model.Job)}
}

// Create initializes a fresh record for the job at the start of its pipeline.
func (m *Memory) Create(ctx context.Context, jobID string) (*model.Job, error) {
	now := time.Now()
	job := &model.Job{
		ID:        jobID,
		Status:    model.JobStatusDownloading,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.jobs[jobID] = job
	m.mu.Unlock()

	copied := *job
	return &copied, nil
}

// Update merges the patch into the existing record.
func (m *Memory) Update(ctx context.Context, jobID string, patch Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return ErrNotFound
	}

	apply(job, patch)
	job.UpdatedAt = time.Now()
	return nil
}

// Get returns a copy of the job record.
func (m *Memory) Get(ctx context.Context, jobID string) (*model.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *job
	return &copied, nil
}
