package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusCancelled  JobStatus = "CANCELLED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Job is the persisted record of one extraction run.
type Job struct {
	ID              uuid.UUID
	UserID          string
	VideoKey        string
	ZipKey          string
	Status          JobStatus
	IntervalSeconds float64
	FramesPerSecond int
	ROI             *Rectangle
	FramesWritten   int
	SkippedFrames   int
	FileSize        int64
	VideoDuration   float64
	Attempt         int
	MaxAttempts     int
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	CompletedAt     *time.Time
}

func NewJob(userID, videoKey string, fileSize int64, cfg ExtractionConfig, maxAttempts int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:              uuid.New(),
		UserID:          userID,
		VideoKey:        videoKey,
		FileSize:        fileSize,
		IntervalSeconds: cfg.IntervalSeconds,
		FramesPerSecond: cfg.FramesPerSecond,
		ROI:             cfg.ROI,
		Status:          JobStatusPending,
		Attempt:         0,
		MaxAttempts:     maxAttempts,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) MarkCompleted(zipKey string, framesWritten, skipped int, duration float64) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.ZipKey = zipKey
	j.FramesWritten = framesWritten
	j.SkippedFrames = skipped
	j.VideoDuration = duration
	j.UpdatedAt = now
	j.CompletedAt = &now
}

// MarkCancelled records a partial run. Frames written before the
// cancellation signal remain valid and are counted.
func (j *Job) MarkCancelled(framesWritten, skipped int) {
	now := time.Now().UTC()
	j.Status = JobStatusCancelled
	j.FramesWritten = framesWritten
	j.SkippedFrames = skipped
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *Job) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}
