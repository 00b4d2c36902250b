// Package mpeg adapts the gen2brain/mpeg decoder to the VideoSource port.
package mpeg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"time"

	gompeg "github.com/gen2brain/mpeg"

	"github.com/framegrab/framegrab-extraction-service/internal/domain/entity"
	"github.com/framegrab/framegrab-extraction-service/internal/domain/port"
)

// Opener satisfies port.SourceOpener.
type Opener struct{}

func (Opener) Open(path string) (port.VideoSource, error) {
	return Open(path)
}

// Source wraps one decoder handle over an open file. The handle is not safe
// for concurrent readers; one extraction job reads it at a time.
type Source struct {
	file *os.File
	mpg  *gompeg.MPEG
	meta entity.VideoMetadata
}

// Open probes the file as an MPEG program stream and reads its properties.
// The returned source must be closed exactly once by the caller.
func Open(path string) (*Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}

	mpg, err := gompeg.New(file)
	if err != nil {
		file.Close()
		if errors.Is(err, gompeg.ErrInvalidMPEG) {
			return nil, fmt.Errorf("%w: %s", entity.ErrUnsupportedFormat, path)
		}
		return nil, fmt.Errorf("probe video: %w", err)
	}

	if !mpg.HasHeaders() || mpg.NumVideoStreams() == 0 {
		file.Close()
		return nil, fmt.Errorf("%w: no video stream in %s", entity.ErrUnsupportedFormat, path)
	}

	// Audio is irrelevant here and decoding it would slow seeks down.
	mpg.SetAudioEnabled(false)

	return &Source{
		file: file,
		mpg:  mpg,
		meta: entity.VideoMetadata{
			DurationSeconds: mpg.Duration().Seconds(),
			FrameRate:       mpg.Framerate(),
			Width:           mpg.Width(),
			Height:          mpg.Height(),
		},
	}, nil
}

func (s *Source) Metadata() entity.VideoMetadata {
	return s.meta
}

// FrameAt seeks to the intra frame nearest the requested timestamp and
// decodes it. The decoder does not guarantee frame-accurate seeks, so the
// returned frame may carry a slightly earlier timestamp; exact seeking
// would require decoding every frame since the previous intra frame.
func (s *Source) FrameAt(ctx context.Context, timestampSeconds float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tm := time.Duration(timestampSeconds * float64(time.Second))
	frame := s.mpg.SeekFrame(tm, false)
	if frame == nil {
		return nil, fmt.Errorf("%w: no decodable frame at %.2fs", entity.ErrDecode, timestampSeconds)
	}

	return frame.YCbCr(), nil
}

func (s *Source) Close() error {
	return s.file.Close()
}
