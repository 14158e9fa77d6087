package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/sceneforge/api/internal/model"
)

func TestMemoryCreate(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	job, err := m.Create(ctx, "job-1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if job.ID != "job-1" {
		t.Errorf("ID = %q, want job-1", job.ID)
	}
	if job.Status != model.JobStatusDownloading {
		t.Errorf("Status = %q, want %q", job.Status, model.JobStatusDownloading)
	}
	if job.Progress != 0 {
		t.Errorf("Progress = %d, want 0", job.Progress)
	}
	if job.CreatedAt.IsZero() || job.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestMemoryUpdateMergesPartialPatch(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if _, err := m.Create(ctx, "job-1"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := m.Update(ctx, "job-1", Progress(model.JobStatusProcessing, 45, "Encoding")); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// Progress-only patch must not clear status or stage.
	p := 60
	if err := m.Update(ctx, "job-1", Patch{Progress: &p}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	job, err := m.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if job.Status != model.JobStatusProcessing {
		t.Errorf("Status = %q, want %q", job.Status, model.JobStatusProcessing)
	}
	if job.Stage != "Encoding" {
		t.Errorf("Stage = %q, want Encoding", job.Stage)
	}
	if job.Progress != 60 {
		t.Errorf("Progress = %d, want 60", job.Progress)
	}
}

func TestMemoryFailure(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if _, err := m.Create(ctx, "job-1"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := m.Update(ctx, "job-1", Failure("download failed: 404")); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	job, err := m.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if job.Status != model.JobStatusFailed {
		t.Errorf("Status = %q, want %q", job.Status, model.JobStatusFailed)
	}
	if job.Error == nil || *job.Error != "download failed: 404" {
		t.Errorf("Error = %v, want download failed: 404", job.Error)
	}
	if !job.Status.Terminal() {
		t.Error("failed status should be terminal")
	}
}

func TestMemoryGetUnknownJob(t *testing.T) {
	m := NewMemory()

	if _, err := m.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
	if err := m.Update(context.Background(), "missing", Failure("x")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update error = %v, want ErrNotFound", err)
	}
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	if _, err := m.Create(ctx, "job-1"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	job, err := m.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	job.Progress = 99
	job.Status = model.JobStatusCompleted

	stored, err := m.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Progress != 0 || stored.Status != model.JobStatusDownloading {
		t.Error("mutating a returned job leaked into the ledger")
	}
}
