package entity

import "github.com/google/uuid"

// ExtractionRequestMessage is the inbound message from the video.extraction
// queue. The ROI, when present, is in source-pixel coordinates; translating
// from display coordinates is the producer's responsibility.
type ExtractionRequestMessage struct {
	JobID           uuid.UUID  `json:"job_id"`
	UserID          string     `json:"user_id"`
	VideoKey        string     `json:"video_key"`
	FileSize        int64      `json:"file_size"`
	UserEmail       string     `json:"user_email"`
	IntervalSeconds float64    `json:"interval_seconds"`
	FramesPerSecond int        `json:"frames_per_second"`
	ROI             *Rectangle `json:"roi,omitempty"`
}

// ExtractionStatusMessage is the outbound message published to the
// video.status queue after each state change.
type ExtractionStatusMessage struct {
	JobID         uuid.UUID `json:"job_id"`
	UserID        string    `json:"user_id"`
	Status        JobStatus `json:"status"`
	VideoKey      string    `json:"video_key"`
	ZipKey        string    `json:"zip_key,omitempty"`
	FramesWritten int       `json:"frames_written,omitempty"`
	SkippedFrames int       `json:"skipped_frames,omitempty"`
	Duration      float64   `json:"duration_seconds,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	Attempt       int       `json:"attempt"`
	MaxAttempts   int       `json:"max_attempts"`
}
