// Command extract runs a single frame extraction locally, without the
// worker service: it opens a video file, samples frames on the configured
// time grid and writes JPEGs into the output directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/framegrab/framegrab-extraction-service/internal/domain/entity"
	"github.com/framegrab/framegrab-extraction-service/internal/extraction"
	"github.com/framegrab/framegrab-extraction-service/internal/infra/mpeg"
	"github.com/framegrab/framegrab-extraction-service/pkg/logger"
)

var (
	flagOutput   string
	flagInterval float64
	flagFPS      int
	flagROI      string
	flagLogLevel string
)

func main() {
	root := &cobra.Command{
		Use:   "extract <video file>",
		Short: "Extract still frames from a video on a time grid",
		Long: `Extract decodes a video file and writes still frames as JPEGs.

The video is divided into fixed intervals; within each interval the given
number of frames per second is sampled. An optional region of interest
(given in source-pixel coordinates as x,y,w,h) crops every output frame.`,
		Args: cobra.ExactArgs(1),
		RunE: run,

		SilenceUsage: true,
	}

	root.Flags().StringVarP(&flagOutput, "output", "o", "extracted_frames", "output directory for frame files")
	root.Flags().Float64VarP(&flagInterval, "interval", "i", 1.0, "interval length in seconds")
	root.Flags().IntVar(&flagFPS, "fps", 1, "frames sampled per second within each interval")
	root.Flags().StringVar(&flagROI, "roi", "", "region of interest as x,y,w,h in source pixels")
	root.Flags().StringVar(&flagLogLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	log, err := logger.New(flagLogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	roi, err := parseROI(flagROI)
	if err != nil {
		return err
	}

	source, err := mpeg.Open(args[0])
	if err != nil {
		return err
	}
	defer source.Close()

	meta := source.Metadata()
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d, %.2f fps, %.2fs\n",
		args[0], meta.Width, meta.Height, meta.FrameRate, meta.DurationSeconds)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	job := extraction.NewJob(source, entity.ExtractionConfig{
		IntervalSeconds: flagInterval,
		FramesPerSecond: flagFPS,
		ROI:             roi,
		OutputDir:       flagOutput,
	}, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for p := range job.Progress() {
			fmt.Fprintf(cmd.ErrOrStderr(), "\r%3.0f%% (%d/%d)", p.Fraction*100, p.Index+1, p.Total)
		}
		fmt.Fprintln(cmd.ErrOrStderr())
	}()

	result, err := job.Run(ctx)
	wg.Wait()

	switch {
	case err == nil:
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d frames to %s", result.FramesWritten, flagOutput)
		if result.SkippedFrames > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), " (%d skipped)", result.SkippedFrames)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(cmd.OutOrStdout(), "cancelled after %d frames\n", result.FramesWritten)
		return nil
	default:
		return err
	}
}

func parseROI(s string) (*entity.Rectangle, error) {
	if s == "" {
		return nil, nil
	}
	var x, y, w, h int
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("roi must be x,y,w,h, got %q", s)
	}
	if _, err := fmt.Sscanf(s, "%d,%d,%d,%d", &x, &y, &w, &h); err != nil {
		return nil, fmt.Errorf("parse roi %q: %w", s, err)
	}
	// Normalize so a rectangle given corner-to-corner in either drag
	// direction comes out with non-negative extent.
	return &entity.Rectangle{
		X:      min(x, x+w),
		Y:      min(y, y+h),
		Width:  abs(w),
		Height: abs(h),
	}, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
