// Package extraction implements the frame-sampling kernel: planning a
// deterministic sequence of sample timestamps over a time grid, cropping
// decoded frames to an optional region of interest, and running the
// decode/crop/write pipeline with progress reporting and cancellation.
package extraction

import (
	"fmt"

	"github.com/framegrab/framegrab-extraction-service/internal/domain/entity"
)

// Plan turns (duration, interval, fps) into the ordered sequence of sample
// requests for a whole run. The video is divided into floor(duration/interval)
// intervals; within interval i, fps timestamps are spaced uniformly at
// i*interval + k/fps. Timestamps past the end of the video are dropped, so
// the trailing partial interval is truncated rather than padded.
//
// An interval longer than the video collapses to a single interval clamped
// to the video's duration. The function is pure: identical inputs always
// yield an identical sequence.
func Plan(durationSeconds, intervalSeconds float64, framesPerSecond int) ([]entity.SampleRequest, error) {
	if durationSeconds <= 0 {
		return nil, fmt.Errorf("%w: duration %.2fs must be positive", entity.ErrInvalidConfig, durationSeconds)
	}
	if intervalSeconds < 1 {
		return nil, fmt.Errorf("%w: interval %.2fs must be at least 1s", entity.ErrInvalidConfig, intervalSeconds)
	}
	if framesPerSecond < 1 {
		return nil, fmt.Errorf("%w: frames per second %d must be at least 1", entity.ErrInvalidConfig, framesPerSecond)
	}

	numIntervals := int(durationSeconds / intervalSeconds)
	if numIntervals < 1 {
		numIntervals = 1
	}

	requests := make([]entity.SampleRequest, 0, numIntervals*framesPerSecond)
	for i := 0; i < numIntervals; i++ {
		for k := 0; k < framesPerSecond; k++ {
			ts := float64(i)*intervalSeconds + float64(k)/float64(framesPerSecond)
			if ts > durationSeconds {
				break
			}
			requests = append(requests, entity.SampleRequest{
				Index:            len(requests),
				TimestampSeconds: ts,
				IntervalIndex:    i,
			})
		}
	}

	return requests, nil
}
