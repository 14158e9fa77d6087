// Package ledger is the status/progress registry for in-flight
// composition jobs. It is passed into the orchestrator explicitly;
// there is no process-wide singleton.
package ledger

import (
	"context"
	"errors"

	"github.com/sceneforge/api/internal/model"
)

// ErrNotFound is returned when a job ID has no ledger entry.
var ErrNotFound = errors.New("job not found")

// Patch is a partial update merged into an existing job record.
// Nil fields are left untouched.
type Patch struct {
	Status   *model.JobStatus
	Stage    *string
	Progress *int
	Error    *string
}

// Ledger tracks composition jobs by ID. Updates to the same job are
// always sequential within its own pipeline; implementations only need
// to be safe for concurrent access across different jobs.
type Ledger interface {
	Create(ctx context.Context, jobID string) (*model.Job, error)
	Update(ctx context.Context, jobID string, patch Patch) error
	Get(ctx context.Context, jobID string) (*model.Job, error)
}

// Progress builds a patch for a routine stage transition.
func Progress(status model.JobStatus, progress int, stage string) Patch {
	return Patch{Status: &status, Progress: &progress, Stage: &stage}
}

// Failure builds the terminal patch for a failed job.
func Failure(message string) Patch {
	status := model.JobStatusFailed
	return Patch{Status: &status, Error: &message}
}

func apply(job *model.Job, patch Patch) {
	if patch.Status != nil {
		job.Status = *patch.Status
	}
	if patch.Stage != nil {
		job.Stage = *patch.Stage
	}
	if patch.Progress != nil {
		job.Progress = *patch.Progress
	}
	if patch.Error != nil {
		job.Error = patch.Error
	}
}
