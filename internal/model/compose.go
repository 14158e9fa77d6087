package model

import "time"

// DefaultFadeDurationMs is used when a shot declares a fade without a duration.
const DefaultFadeDurationMs = 500

// Shot is one source video clip placed at a position in the scene timeline.
type Shot struct {
	ID             string   `json:"id" validate:"required"`
	Order          int      `json:"order"`
	VideoURL       string   `json:"videoUrl" validate:"required,url"`
	DurationMs     float64  `json:"durationMs" validate:"required,gt=0"`
	TrimStartMs    float64  `json:"trimStartMs" validate:"gte=0"`
	TrimEndMs      float64  `json:"trimEndMs" validate:"gte=0"`
	AudioMuted     bool     `json:"audioMuted"`
	FadeInType     FadeType `json:"fadeInType" validate:"omitempty,oneof=none black white"`
	FadeOutType    FadeType `json:"fadeOutType" validate:"omitempty,oneof=none black white"`
	FadeDurationMs float64  `json:"fadeDurationMs" validate:"gte=0"`
}

// Trimmed reports whether the caller removed material from either end.
func (s Shot) Trimmed() bool {
	return s.TrimStartMs > 0 || s.TrimEndMs > 0
}

// StoredDurationMs is the caller-declared usable length after trims.
func (s Shot) StoredDurationMs() float64 {
	return s.DurationMs - s.TrimStartMs - s.TrimEndMs
}

// FadeDuration returns the fade length, falling back to the default.
func (s Shot) FadeDuration() float64 {
	if s.FadeDurationMs > 0 {
		return s.FadeDurationMs
	}
	return DefaultFadeDurationMs
}

// AudioTrack is an independently timed and volumed audio layer overlaid
// on the assembled shot audio.
type AudioTrack struct {
	ID          string  `json:"id" validate:"required"`
	SourceURL   string  `json:"sourceUrl" validate:"required,url"`
	StartTimeMs float64 `json:"startTimeMs" validate:"gte=0"`
	DurationMs  float64 `json:"durationMs" validate:"required,gt=0"`
	TrimStartMs float64 `json:"trimStartMs" validate:"gte=0"`
	Volume      float64 `json:"volume" validate:"gte=0,lte=1"`
	Muted       bool    `json:"muted"`
}

// ComposeStartRequest is the job submission body for scene composition.
// The shot list may be empty at the HTTP boundary; the orchestrator
// rejects it before any I/O and still delivers a failure webhook.
type ComposeStartRequest struct {
	JobID        string       `json:"jobId"`
	ProjectID    string       `json:"projectId" validate:"required"`
	SceneID      string       `json:"sceneId" validate:"required"`
	WebhookURL   string       `json:"webhookUrl" validate:"required,url"`
	Shots        []Shot       `json:"shots" validate:"dive"`
	AudioTracks  []AudioTrack `json:"audioTracks" validate:"dive"`
	MasterVolume *float64     `json:"masterVolume" validate:"omitempty,gte=0"`
}

// MasterVolumeOrDefault returns the master volume multiplier, defaulting to 1.0.
func (r *ComposeStartRequest) MasterVolumeOrDefault() float64 {
	if r.MasterVolume == nil {
		return 1.0
	}
	return *r.MasterVolume
}

// ComposeStartResponse is returned when a composition job is accepted.
type ComposeStartResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// ComposeStatusResponse is the polling view of a job.
type ComposeStatusResponse struct {
	JobID    string    `json:"jobId"`
	Status   JobStatus `json:"status"`
	Stage    string    `json:"stage,omitempty"`
	Progress int       `json:"progress"`
	Error    *string   `json:"error,omitempty"`
}

// CompositionResult is the terminal payload delivered to the webhook.
type CompositionResult struct {
	JobID        string    `json:"jobId"`
	Status       JobStatus `json:"status"`
	VideoURL     string    `json:"videoUrl,omitempty"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	DurationMs   float64   `json:"durationMs,omitempty"`
	Error        string    `json:"error,omitempty"`
}
