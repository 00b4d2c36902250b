package extraction

import (
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"

	"github.com/framegrab/framegrab-extraction-service/internal/domain/entity"
	"github.com/framegrab/framegrab-extraction-service/internal/domain/port"
	"go.uber.org/zap"
)

type State string

const (
	StateIdle      State = "IDLE"
	StateRunning   State = "RUNNING"
	StateCompleted State = "COMPLETED"
	StateCancelled State = "CANCELLED"
	StateFailed    State = "FAILED"
)

// Progress is pushed after each processed sample request, including skipped
// ones. Fraction is (Index+1)/Total, in [0,1].
type Progress struct {
	Index    int
	Total    int
	Fraction float64
}

// Job runs one extraction over an opened video source: plan the sample
// sequence up front, then decode, crop, encode and write each frame in
// order. A Job is single-use; a new run requires a new Job.
//
// The source handle stays owned by whoever opened it. The job only reads
// from it, never closes it.
type Job struct {
	source port.VideoSource
	cfg    entity.ExtractionConfig
	logger *zap.Logger

	mu       sync.Mutex
	state    State
	progress chan Progress
}

func NewJob(source port.VideoSource, cfg entity.ExtractionConfig, logger *zap.Logger) *Job {
	return &Job{
		source:   source,
		cfg:      cfg,
		logger:   logger,
		state:    StateIdle,
		progress: make(chan Progress, 64),
	}
}

// Progress returns the channel progress updates are pushed through. Sends
// never block the extraction loop: when the consumer lags, updates are
// dropped in favor of newer ones. The channel is closed when the run ends.
func (j *Job) Progress() <-chan Progress {
	return j.progress
}

// State reports the job's current state. Terminal states are final.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

func (j *Job) setState(s State) {
	j.mu.Lock()
	j.state = s
	j.mu.Unlock()
}

// Run executes the full sample sequence. Start-time failures (bad config,
// unusable output directory, zero-area ROI) abort before any decoding and
// return a nil result. Per-frame decode or write failures are counted as
// skipped and the run continues.
//
// Cancellation is cooperative, checked between requests. On cancellation
// Run returns the partial result together with the context error;
// already-written frames remain on disk.
func (j *Job) Run(ctx context.Context) (*entity.ExtractionResult, error) {
	j.mu.Lock()
	if j.state != StateIdle {
		j.mu.Unlock()
		return nil, fmt.Errorf("job already ran (state %s)", j.state)
	}
	j.state = StateRunning
	j.mu.Unlock()

	defer close(j.progress)

	requests, err := j.prepare()
	if err != nil {
		j.setState(StateFailed)
		return nil, err
	}

	meta := j.source.Metadata()
	result := &entity.ExtractionResult{}

	j.logger.Info("extraction started",
		zap.Int("planned_frames", len(requests)),
		zap.Float64("video_duration", meta.DurationSeconds),
		zap.String("output_dir", j.cfg.OutputDir),
	)

	for _, req := range requests {
		select {
		case <-ctx.Done():
			j.setState(StateCancelled)
			j.logger.Info("extraction cancelled",
				zap.Int("frames_written", result.FramesWritten),
				zap.Int("planned_frames", len(requests)),
			)
			return result, ctx.Err()
		default:
		}

		name, err := FrameFileName(req.Index, req.TimestampSeconds)
		if err != nil {
			j.setState(StateFailed)
			return result, err
		}

		if err := j.writeFrame(ctx, req, filepath.Join(j.cfg.OutputDir, name)); err != nil {
			result.SkippedFrames++
			j.logger.Warn("frame skipped",
				zap.Int("index", req.Index),
				zap.Float64("timestamp", req.TimestampSeconds),
				zap.Error(err),
			)
		} else {
			result.FramesWritten++
			result.OutputPaths = append(result.OutputPaths, filepath.Join(j.cfg.OutputDir, name))
		}

		j.emit(Progress{
			Index:    req.Index,
			Total:    len(requests),
			Fraction: float64(req.Index+1) / float64(len(requests)),
		})
	}

	j.setState(StateCompleted)
	j.logger.Info("extraction completed",
		zap.Int("frames_written", result.FramesWritten),
		zap.Int("frames_skipped", result.SkippedFrames),
	)
	return result, nil
}

// prepare validates the config against the source metadata and plans the
// sample sequence. Any error here is fatal: no frames have been written yet.
func (j *Job) prepare() ([]entity.SampleRequest, error) {
	if j.cfg.OutputDir == "" {
		return nil, fmt.Errorf("%w: output directory not set", entity.ErrInvalidConfig)
	}

	meta := j.source.Metadata()
	requests, err := Plan(meta.DurationSeconds, j.cfg.IntervalSeconds, j.cfg.FramesPerSecond)
	if err != nil {
		return nil, err
	}

	// The ROI is constant for the run, so a zero-area region would fail
	// every frame. Reject it up front instead of skipping N times.
	if j.cfg.ROI != nil {
		if j.cfg.ROI.Clamp(meta.Width, meta.Height).Area() == 0 {
			return nil, fmt.Errorf("%w: %s against %dx%d video",
				entity.ErrInvalidROI, j.cfg.ROI, meta.Width, meta.Height)
		}
	}

	if err := os.MkdirAll(j.cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	return requests, nil
}

func (j *Job) writeFrame(ctx context.Context, req entity.SampleRequest, path string) error {
	frame, err := j.source.FrameAt(ctx, req.TimestampSeconds)
	if err != nil {
		return err
	}

	cropped, err := CropFrame(frame, j.cfg.ROI)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create frame file: %w", err)
	}

	if err := jpeg.Encode(f, cropped, nil); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("encode frame: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close frame file: %w", err)
	}

	return nil
}

func (j *Job) emit(p Progress) {
	select {
	case j.progress <- p:
	default:
		// Slow consumer: drop the oldest update and retry once so the
		// channel converges on the most recent value.
		select {
		case <-j.progress:
		default:
		}
		select {
		case j.progress <- p:
		default:
		}
	}
}
