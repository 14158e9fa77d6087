package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/sceneforge/api/internal/ledger"
	"github.com/sceneforge/api/internal/model"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func validStartRequest() *model.ComposeStartRequest {
	return &model.ComposeStartRequest{
		ProjectID:  "p1",
		SceneID:    "s1",
		WebhookURL: "https://app.test/hooks/compose",
		Shots: []model.Shot{
			{ID: "shot-1", VideoURL: "https://assets.test/a.mp4", DurationMs: 4000},
		},
	}
}

func TestStartComposition(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	svc := NewComposeService(ledger.NewMemory(), enqueuer)

	resp, err := svc.StartComposition(context.Background(), validStartRequest())
	if err != nil {
		t.Fatalf("StartComposition failed: %v", err)
	}
	if resp.JobID == "" {
		t.Error("expected a generated job ID")
	}
	if resp.Status != model.JobStatusDownloading {
		t.Errorf("status = %q, want %q", resp.Status, model.JobStatusDownloading)
	}

	if len(enqueuer.tasks) != 1 {
		t.Fatalf("expected 1 enqueued task, got %d", len(enqueuer.tasks))
	}
	task := enqueuer.tasks[0]
	if task.Type() != TaskTypeCompose {
		t.Errorf("task type = %q, want %q", task.Type(), TaskTypeCompose)
	}

	var queued model.ComposeStartRequest
	if err := json.Unmarshal(task.Payload(), &queued); err != nil {
		t.Fatalf("task payload did not decode: %v", err)
	}
	if queued.JobID != resp.JobID {
		t.Errorf("queued jobId %q does not match response %q", queued.JobID, resp.JobID)
	}
}

func TestStartComposition_KeepsCallerJobID(t *testing.T) {
	svc := NewComposeService(ledger.NewMemory(), &fakeEnqueuer{})

	req := validStartRequest()
	req.JobID = "caller-chosen"

	resp, err := svc.StartComposition(context.Background(), req)
	if err != nil {
		t.Fatalf("StartComposition failed: %v", err)
	}
	if resp.JobID != "caller-chosen" {
		t.Errorf("jobId = %q, want caller-chosen", resp.JobID)
	}
}

func TestStartComposition_EnqueueFailure(t *testing.T) {
	svc := NewComposeService(ledger.NewMemory(), &fakeEnqueuer{err: errors.New("redis down")})

	if _, err := svc.StartComposition(context.Background(), validStartRequest()); err == nil {
		t.Error("expected error when enqueue fails")
	}
}

func TestGetStatus(t *testing.T) {
	jobLedger := ledger.NewMemory()
	svc := NewComposeService(jobLedger, &fakeEnqueuer{})
	ctx := context.Background()

	if _, err := jobLedger.Create(ctx, "job-1"); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := jobLedger.Update(ctx, "job-1", ledger.Progress(model.JobStatusProcessing, 55, "Rendering scene video...")); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	status, err := svc.GetStatus(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if status.Status != model.JobStatusProcessing || status.Progress != 55 {
		t.Errorf("status = %s/%d, want processing/55", status.Status, status.Progress)
	}
	if status.Stage != "Rendering scene video..." {
		t.Errorf("stage = %q", status.Stage)
	}
}

func TestGetStatus_UnknownJob(t *testing.T) {
	svc := NewComposeService(ledger.NewMemory(), &fakeEnqueuer{})

	if _, err := svc.GetStatus(context.Background(), "missing"); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
