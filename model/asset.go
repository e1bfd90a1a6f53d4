package model

import "time"

// OwnerAssetID is the sentinel id of the built-in sample stream.
const OwnerAssetID = "owner"

// FallbackFPS is the playback rate used whenever an asset's recorded frame
// rate is missing or non-positive. Some containers report a zero rate; the
// pipeline still converts them and playback paces at this rate instead.
const FallbackFPS = 24.0

// Metadata is the persisted per-asset record, written as metadata.json in the
// asset directory once conversion finishes. Other tooling reads this file
// directly, so the JSON keys are a stable contract.
type Metadata struct {
	FPS        float64  `json:"fps"`
	FrameCount int      `json:"frame_count"`
	Duration   float64  `json:"duration"` // seconds
	Width      int      `json:"width"`    // character columns
	FramePaths []string `json:"frame_paths"`
	AudioPath  string   `json:"audio_path,omitempty"`
	Thumbnail  string   `json:"thumbnail,omitempty"`
}

// JobState enumerates the lifecycle states a conversion job can report.
type JobState string

const (
	JobNotFound  JobState = "not_found"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// JobStatus is the registry's view of one conversion job. A job is written
// once at submission and mutated exactly once by its own worker on
// completion or failure.
type JobStatus struct {
	Status    JobState  `json:"status"`
	Metadata  *Metadata `json:"metadata,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// VideoSummary is the listing entry returned by the videos API.
type VideoSummary struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Duration float64 `json:"duration,omitempty"`
	FPS      float64 `json:"fps,omitempty"`
	Status   string  `json:"status"`
}
