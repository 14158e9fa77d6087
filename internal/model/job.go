package model

import "time"

// Job is a composition job's ledger entry. It is mutated in place by
// every pipeline stage and read by the status-polling endpoint.
type Job struct {
	ID        string    `json:"id"`
	Status    JobStatus `json:"status"`
	Stage     string    `json:"stage,omitempty"`
	Progress  int       `json:"progress"`
	Error     *string   `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
