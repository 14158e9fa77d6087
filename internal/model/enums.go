package model

// Job status
type JobStatus string

const (
	JobStatusDownloading JobStatus = "downloading"
	JobStatusProcessing  JobStatus = "processing"
	JobStatusUploading   JobStatus = "uploading"
	JobStatusCompleted   JobStatus = "completed"
	JobStatusFailed      JobStatus = "failed"
)

// Terminal reports whether the status is a final job state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Fade types
type FadeType string

const (
	FadeNone  FadeType = "none"
	FadeBlack FadeType = "black"
	FadeWhite FadeType = "white"
)
