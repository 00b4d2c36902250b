package postgres

import (
	"context"
	"fmt"

	"github.com/framegrab/framegrab-extraction-service/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) error {
	query := `
		INSERT INTO extraction_jobs (
			id, user_id, video_key, zip_key, status,
			interval_seconds, frames_per_second,
			roi_x, roi_y, roi_width, roi_height,
			frames_written, skipped_frames, file_size, video_duration,
			attempt, max_attempts, error_message,
			created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`

	roiX, roiY, roiW, roiH := roiColumns(job.ROI)
	_, err := r.pool.Exec(ctx, query,
		job.ID, job.UserID, job.VideoKey, job.ZipKey, string(job.Status),
		job.IntervalSeconds, job.FramesPerSecond,
		roiX, roiY, roiW, roiH,
		job.FramesWritten, job.SkippedFrames, job.FileSize, job.VideoDuration,
		job.Attempt, job.MaxAttempts, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.Job) error {
	query := `
		UPDATE extraction_jobs SET
			status=$2, zip_key=$3, frames_written=$4, skipped_frames=$5,
			video_duration=$6, attempt=$7, error_message=$8,
			updated_at=$9, completed_at=$10
		WHERE id=$1`

	_, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.ZipKey, job.FramesWritten, job.SkippedFrames,
		job.VideoDuration, job.Attempt, job.ErrorMessage,
		job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	query := `
		SELECT id, user_id, video_key, zip_key, status,
			interval_seconds, frames_per_second,
			roi_x, roi_y, roi_width, roi_height,
			frames_written, skipped_frames, file_size, video_duration,
			attempt, max_attempts, error_message,
			created_at, updated_at, completed_at
		FROM extraction_jobs WHERE id=$1`

	job := &entity.Job{}
	var status string
	var roiX, roiY, roiW, roiH *int
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.UserID, &job.VideoKey, &job.ZipKey, &status,
		&job.IntervalSeconds, &job.FramesPerSecond,
		&roiX, &roiY, &roiW, &roiH,
		&job.FramesWritten, &job.SkippedFrames, &job.FileSize, &job.VideoDuration,
		&job.Attempt, &job.MaxAttempts, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	job.Status = entity.JobStatus(status)
	if roiX != nil && roiY != nil && roiW != nil && roiH != nil {
		job.ROI = &entity.Rectangle{X: *roiX, Y: *roiY, Width: *roiW, Height: *roiH}
	}
	return job, nil
}

func roiColumns(roi *entity.Rectangle) (x, y, w, h *int) {
	if roi == nil {
		return nil, nil, nil, nil
	}
	return &roi.X, &roi.Y, &roi.Width, &roi.Height
}
