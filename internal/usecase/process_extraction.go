package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/framegrab/framegrab-extraction-service/internal/domain/entity"
	"github.com/framegrab/framegrab-extraction-service/internal/domain/port"
	"github.com/framegrab/framegrab-extraction-service/internal/extraction"
	"github.com/framegrab/framegrab-extraction-service/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type ProcessExtractionUseCase struct {
	repo      port.JobRepository
	storage   port.VideoStorage
	opener    port.SourceOpener
	archiver  port.Archiver
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	tempDir   string
	maxRetry  int

	defaultInterval float64
	defaultFPS      int
}

type ProcessExtractionConfig struct {
	TempDir         string
	MaxRetries      int
	DefaultInterval float64
	DefaultFPS      int
}

func NewProcessExtractionUseCase(
	repo port.JobRepository,
	storage port.VideoStorage,
	opener port.SourceOpener,
	archiver port.Archiver,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessExtractionConfig,
) *ProcessExtractionUseCase {
	return &ProcessExtractionUseCase{
		repo:            repo,
		storage:         storage,
		opener:          opener,
		archiver:        archiver,
		publisher:       publisher,
		dlq:             dlq,
		notifier:        notifier,
		logger:          logger,
		tempDir:         cfg.TempDir,
		maxRetry:        cfg.MaxRetries,
		defaultInterval: cfg.DefaultInterval,
		defaultFPS:      cfg.DefaultFPS,
	}
}

func (uc *ProcessExtractionUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessExtractionUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.ExtractionRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}
	if msg.IntervalSeconds <= 0 {
		msg.IntervalSeconds = uc.defaultInterval
	}
	if msg.FramesPerSecond <= 0 {
		msg.FramesPerSecond = uc.defaultFPS
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
		attribute.Float64("job.interval_seconds", msg.IntervalSeconds),
		attribute.Int("job.frames_per_second", msg.FramesPerSecond),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	extractCfg := entity.ExtractionConfig{
		IntervalSeconds: msg.IntervalSeconds,
		FramesPerSecond: msg.FramesPerSecond,
		ROI:             msg.ROI,
	}

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if err != nil {
		job = entity.NewJob(msg.UserID, msg.VideoKey, msg.FileSize, extractCfg, uc.maxRetry)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
		return nil
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.runPipeline(ctx, job, msg, rawMsg, extractCfg, log); err != nil {
		return err
	}

	metrics.JobsProcessedTotal.WithLabelValues(string(job.Status)).Inc()
	metrics.JobStageDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

func (uc *ProcessExtractionUseCase) runPipeline(
	ctx context.Context,
	job *entity.Job,
	msg entity.ExtractionRequestMessage,
	rawMsg []byte,
	extractCfg entity.ExtractionConfig,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.tempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Download video from object storage
	dlStart := time.Now()
	ctx2, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input.mpg")
	if err := uc.storage.DownloadVideo(ctx2, msg.VideoKey, videoPath); err != nil {
		spanDl.End()
		log.Error("failed to download video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
	}
	spanDl.End()
	metrics.JobStageDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	// Open the decoder and extract frames
	exStart := time.Now()
	ctx3, spanEx := tracer.Start(ctx, "extract_frames")

	source, err := uc.opener.Open(videoPath)
	if err != nil {
		spanEx.End()
		log.Error("failed to open video", zap.Error(err))
		if isPermanent(err) {
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "open_video: "+err.Error())
		}
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "open_video: "+err.Error(), log)
	}
	defer source.Close()

	extractCfg.OutputDir = filepath.Join(workDir, "frames")
	extractJob := extraction.NewJob(source, extractCfg, log)

	go func() {
		for p := range extractJob.Progress() {
			log.Debug("extraction progress",
				zap.Int("index", p.Index),
				zap.Int("total", p.Total),
				zap.Float64("fraction", p.Fraction),
			)
		}
	}()

	result, err := extractJob.Run(ctx3)
	spanEx.End()
	metrics.JobStageDuration.WithLabelValues("extract").Observe(time.Since(exStart).Seconds())

	switch {
	case err == nil:
		metrics.FramesWrittenTotal.Add(float64(result.FramesWritten))
		metrics.FramesSkippedTotal.Add(float64(result.SkippedFrames))
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		// Shutdown mid-run: record the partial result and requeue so
		// another worker picks the job up again.
		job.MarkCancelled(result.FramesWritten, result.SkippedFrames)
		_ = uc.repo.Update(ctx, job)
		uc.publishStatus(ctx, job, log)
		return fmt.Errorf("extraction cancelled: %w", err)
	case isPermanent(err):
		log.Error("extraction failed permanently", zap.Error(err))
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "extract_frames: "+err.Error())
	default:
		log.Error("frame extraction failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "extract_frames: "+err.Error(), log)
	}

	meta := source.Metadata()

	// Bundle frames into a ZIP
	zipStart := time.Now()
	ctx4, spanZip := tracer.Start(ctx, "create_archive")
	zipPath := filepath.Join(workDir, "frames.zip")
	if err := uc.archiver.CreateArchive(ctx4, result.OutputPaths, zipPath); err != nil {
		spanZip.End()
		log.Error("archive creation failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "create_archive: "+err.Error(), log)
	}
	spanZip.End()
	metrics.JobStageDuration.WithLabelValues("zip").Observe(time.Since(zipStart).Seconds())

	// Upload ZIP to object storage
	upStart := time.Now()
	ctx5, spanUp := tracer.Start(ctx, "upload_archive")
	zipKey := fmt.Sprintf("%s/frames_%s.zip", msg.UserID, job.ID.String())
	zipFile, err := os.Open(zipPath)
	if err != nil {
		spanUp.End()
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "open_archive: "+err.Error(), log)
	}
	zipStat, _ := zipFile.Stat()
	if err := uc.storage.UploadArchive(ctx5, zipKey, zipFile, zipStat.Size()); err != nil {
		zipFile.Close()
		spanUp.End()
		log.Error("archive upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_archive: "+err.Error(), log)
	}
	zipFile.Close()
	spanUp.End()
	metrics.JobStageDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	// Mark completed
	job.MarkCompleted(zipKey, result.FramesWritten, result.SkippedFrames, meta.DurationSeconds)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	log.Info("job completed",
		zap.Int("frames_written", result.FramesWritten),
		zap.Int("frames_skipped", result.SkippedFrames),
		zap.Float64("duration_secs", meta.DurationSeconds),
		zap.String("zip_key", zipKey),
	)

	return nil
}

// isPermanent reports whether an extraction error cannot be fixed by
// retrying the same message.
func isPermanent(err error) bool {
	return errors.Is(err, entity.ErrInvalidConfig) ||
		errors.Is(err, entity.ErrUnsupportedFormat) ||
		errors.Is(err, entity.ErrInvalidROI) ||
		errors.Is(err, entity.ErrIndexOverflow)
}

func (uc *ProcessExtractionUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.ExtractionRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *ProcessExtractionUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.ExtractionRequestMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), msg.VideoKey, errMsg)
	}

	return nil
}

func (uc *ProcessExtractionUseCase) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	statusMsg := entity.ExtractionStatusMessage{
		JobID:         job.ID,
		UserID:        job.UserID,
		Status:        job.Status,
		VideoKey:      job.VideoKey,
		ZipKey:        job.ZipKey,
		FramesWritten: job.FramesWritten,
		SkippedFrames: job.SkippedFrames,
		Duration:      job.VideoDuration,
		ErrorMessage:  job.ErrorMessage,
		Attempt:       job.Attempt,
		MaxAttempts:   job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
