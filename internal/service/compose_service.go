package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/sceneforge/api/internal/ledger"
	"github.com/sceneforge/api/internal/model"
)

const TaskTypeCompose = "compose:process"

// TaskEnqueuer abstracts task submission; satisfied by *asynq.Client.
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ComposeService accepts composition requests and queues them for the
// worker. Retrying a failed job is the caller's responsibility, so
// tasks are enqueued without automatic retries.
type ComposeService struct {
	ledger   ledger.Ledger
	enqueuer TaskEnqueuer
}

func NewComposeService(jobLedger ledger.Ledger, enqueuer TaskEnqueuer) *ComposeService {
	return &ComposeService{
		ledger:   jobLedger,
		enqueuer: enqueuer,
	}
}

// StartComposition registers the job and queues it for processing.
func (s *ComposeService) StartComposition(ctx context.Context, req *model.ComposeStartRequest) (*model.ComposeStartResponse, error) {
	if req.JobID == "" {
		req.JobID = uuid.New().String()
	}

	job, err := s.ledger.Create(ctx, req.JobID)
	if err != nil {
		return nil, fmt.Errorf("failed to register job: %w", err)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TaskTypeCompose, payload)
	_, err = s.enqueuer.Enqueue(task,
		asynq.Queue("compose"),
		asynq.MaxRetry(0),
		asynq.Retention(24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.ComposeStartResponse{
		JobID:     req.JobID,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	}, nil
}

// GetStatus returns the polling view of a job.
func (s *ComposeService) GetStatus(ctx context.Context, jobID string) (*model.ComposeStatusResponse, error) {
	job, err := s.ledger.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.ComposeStatusResponse{
		JobID:    job.ID,
		Status:   job.Status,
		Stage:    job.Stage,
		Progress: job.Progress,
		Error:    job.Error,
	}, nil
}
