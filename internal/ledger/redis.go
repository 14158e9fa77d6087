package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sceneforge/api/internal/model"
)

const redisJobTTL = 24 * time.Hour

// Redis is a Ledger backed by a Redis key per job, so the polling
// surface works across replicas and survives process restarts.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed ledger.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func jobKey(jobID string) string {
	return fmt.Sprintf("job:%s", jobID)
}

// Create initializes a fresh record for the job at the start of its pipeline.
func (r *Redis) Create(ctx context.Context, jobID string) (*model.Job, error) {
	now := time.Now()
	job := &model.Job{
		ID:        jobID,
		Status:    model.JobStatusDownloading,
		Progress:  0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := r.save(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Update merges the patch into the existing record.
func (r *Redis) Update(ctx context.Context, jobID string, patch Patch) error {
	job, err := r.Get(ctx, jobID)
	if err != nil {
		return err
	}

	apply(job, patch)
	job.UpdatedAt = time.Now()
	return r.save(ctx, job)
}

// Get returns the job record.
func (r *Redis) Get(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := r.client.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *Redis) save(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, jobKey(job.ID), data, redisJobTTL).Err()
}
