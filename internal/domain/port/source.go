package port

import (
	"context"
	"image"

	"github.com/framegrab/framegrab-extraction-service/internal/domain/entity"
)

// VideoSource is an opened video stream. The underlying decoder handle is
// single-access: one reader at a time, one job per source. Close must be
// called exactly once by whoever opened the source, on every exit path.
type VideoSource interface {
	// Metadata reports duration, native frame rate and frame dimensions,
	// read once at open time.
	Metadata() entity.VideoMetadata

	// FrameAt decodes the frame closest to the given timestamp. Exact
	// frame-accurate seeking is not guaranteed; small timestamp drift
	// toward the preceding intra frame is expected.
	FrameAt(ctx context.Context, timestampSeconds float64) (image.Image, error)

	Close() error
}

// SourceOpener opens a video file for one extraction job. Open fails with
// entity.ErrUnsupportedFormat when the decoder does not recognize the file.
type SourceOpener interface {
	Open(path string) (VideoSource, error)
}
