package extraction

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/framegrab/framegrab-extraction-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSource serves synthetic frames without a real decoder.
type fakeSource struct {
	meta    entity.VideoMetadata
	decoded int
	failAt  map[int]bool   // decode calls (0-based) that fail
	onFrame func(call int) // invoked before each decode
}

func newFakeSource(duration float64) *fakeSource {
	return &fakeSource{
		meta: entity.VideoMetadata{
			DurationSeconds: duration,
			FrameRate:       25,
			Width:           64,
			Height:          48,
		},
	}
}

func (f *fakeSource) Metadata() entity.VideoMetadata { return f.meta }

func (f *fakeSource) FrameAt(_ context.Context, ts float64) (image.Image, error) {
	call := f.decoded
	f.decoded++
	if f.onFrame != nil {
		f.onFrame(call)
	}
	if f.failAt[call] {
		return nil, fmt.Errorf("%w: synthetic failure at %.2fs", entity.ErrDecode, ts)
	}
	return image.NewRGBA(image.Rect(0, 0, f.meta.Width, f.meta.Height)), nil
}

func (f *fakeSource) Close() error { return nil }

func jpegsIn(t *testing.T, dir string) []string {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(dir, "*.jpg"))
	require.NoError(t, err)
	return paths
}

func TestJobRunCompletes(t *testing.T) {
	outDir := t.TempDir()
	source := newFakeSource(10)
	job := NewJob(source, entity.ExtractionConfig{
		IntervalSeconds: 1,
		FramesPerSecond: 1,
		OutputDir:       outDir,
	}, zap.NewNop())

	result, err := job.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, job.State())
	assert.Equal(t, 10, result.FramesWritten)
	assert.Zero(t, result.SkippedFrames)
	assert.Len(t, result.OutputPaths, 10)
	assert.Len(t, jpegsIn(t, outDir), 10)

	// Output names follow emission order.
	assert.Equal(t, filepath.Join(outDir, "frame_000000_t0.00s.jpg"), result.OutputPaths[0])
	assert.Equal(t, filepath.Join(outDir, "frame_000009_t9.00s.jpg"), result.OutputPaths[9])
}

func TestJobRunWithROI(t *testing.T) {
	outDir := t.TempDir()
	source := newFakeSource(2)
	roi := &entity.Rectangle{X: 8, Y: 8, Width: 16, Height: 16}
	job := NewJob(source, entity.ExtractionConfig{
		IntervalSeconds: 1,
		FramesPerSecond: 1,
		ROI:             roi,
		OutputDir:       outDir,
	}, zap.NewNop())

	result, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.FramesWritten)
}

func TestJobRunSkipsFailedFrames(t *testing.T) {
	outDir := t.TempDir()
	source := newFakeSource(5)
	source.failAt = map[int]bool{1: true, 3: true}
	job := NewJob(source, entity.ExtractionConfig{
		IntervalSeconds: 1,
		FramesPerSecond: 1,
		OutputDir:       outDir,
	}, zap.NewNop())

	result, err := job.Run(context.Background())
	require.NoError(t, err)

	// One bad frame never aborts the run.
	assert.Equal(t, StateCompleted, job.State())
	assert.Equal(t, 3, result.FramesWritten)
	assert.Equal(t, 2, result.SkippedFrames)
	assert.Len(t, jpegsIn(t, outDir), 3)
}

func TestJobRunCancelledMidway(t *testing.T) {
	outDir := t.TempDir()
	source := newFakeSource(20)

	ctx, cancel := context.WithCancel(context.Background())
	const cancelAfter = 7
	source.onFrame = func(call int) {
		if call == cancelAfter-1 {
			cancel()
		}
	}

	job := NewJob(source, entity.ExtractionConfig{
		IntervalSeconds: 1,
		FramesPerSecond: 1,
		OutputDir:       outDir,
	}, zap.NewNop())

	result, err := job.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	// Cancellation is checked between requests: the in-flight frame
	// finishes, nothing past it is decoded or written.
	assert.Equal(t, StateCancelled, job.State())
	assert.Equal(t, cancelAfter, result.FramesWritten)
	assert.Len(t, jpegsIn(t, outDir), cancelAfter)
	for _, p := range jpegsIn(t, outDir) {
		assert.Less(t, filepath.Base(p), fmt.Sprintf("frame_%06d", cancelAfter))
	}
}

func TestJobRunInvalidConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  entity.ExtractionConfig
	}{
		{"missing output dir", entity.ExtractionConfig{IntervalSeconds: 1, FramesPerSecond: 1}},
		{"zero fps", entity.ExtractionConfig{IntervalSeconds: 1, OutputDir: t.TempDir()}},
		{"interval below one second", entity.ExtractionConfig{IntervalSeconds: 0.2, FramesPerSecond: 1, OutputDir: t.TempDir()}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := NewJob(newFakeSource(10), tc.cfg, zap.NewNop())
			result, err := job.Run(context.Background())
			assert.ErrorIs(t, err, entity.ErrInvalidConfig)
			assert.Nil(t, result)
			assert.Equal(t, StateFailed, job.State())
		})
	}
}

func TestJobRunZeroAreaROIFailsBeforeDecoding(t *testing.T) {
	outDir := t.TempDir()
	source := newFakeSource(10)
	roi := &entity.Rectangle{X: 500, Y: 500, Width: 10, Height: 10} // outside 64x48
	job := NewJob(source, entity.ExtractionConfig{
		IntervalSeconds: 1,
		FramesPerSecond: 1,
		ROI:             roi,
		OutputDir:       outDir,
	}, zap.NewNop())

	_, err := job.Run(context.Background())
	assert.ErrorIs(t, err, entity.ErrInvalidROI)
	assert.Equal(t, StateFailed, job.State())
	assert.Zero(t, source.decoded)
	assert.Empty(t, jpegsIn(t, outDir))
}

func TestJobIsSingleUse(t *testing.T) {
	source := newFakeSource(2)
	job := NewJob(source, entity.ExtractionConfig{
		IntervalSeconds: 1,
		FramesPerSecond: 1,
		OutputDir:       t.TempDir(),
	}, zap.NewNop())

	_, err := job.Run(context.Background())
	require.NoError(t, err)

	_, err = job.Run(context.Background())
	assert.Error(t, err)
}

func TestJobProgressReachesOne(t *testing.T) {
	source := newFakeSource(4)
	job := NewJob(source, entity.ExtractionConfig{
		IntervalSeconds: 1,
		FramesPerSecond: 1,
		OutputDir:       t.TempDir(),
	}, zap.NewNop())

	done := make(chan Progress, 1)
	go func() {
		var last Progress
		for p := range job.Progress() {
			assert.GreaterOrEqual(t, p.Fraction, last.Fraction)
			last = p
		}
		done <- last
	}()

	_, err := job.Run(context.Background())
	require.NoError(t, err)

	last := <-done
	assert.Equal(t, 1.0, last.Fraction)
	assert.Equal(t, 4, last.Total)
}

func TestJobOutputDirCreated(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "nested", "frames")
	source := newFakeSource(1)
	job := NewJob(source, entity.ExtractionConfig{
		IntervalSeconds: 1,
		FramesPerSecond: 1,
		OutputDir:       outDir,
	}, zap.NewNop())

	_, err := job.Run(context.Background())
	require.NoError(t, err)

	info, err := os.Stat(outDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
