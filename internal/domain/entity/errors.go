package entity

import "errors"

// Extraction error taxonomy. Start-time errors (config, source open) are
// fatal for a job; per-frame errors are recorded and skipped.
var (
	// ErrInvalidConfig marks an out-of-range interval/fps or an unusable
	// output directory. Fatal before any decoding begins.
	ErrInvalidConfig = errors.New("invalid extraction config")

	// ErrUnsupportedFormat is returned when a file cannot be recognized
	// by the decoder. Fatal at open time.
	ErrUnsupportedFormat = errors.New("unsupported video format")

	// ErrDecode marks a single-frame decode failure. Recoverable: the
	// frame is skipped and extraction continues.
	ErrDecode = errors.New("frame decode failed")

	// ErrInvalidROI is returned when the region of interest has zero
	// area after clamping into the frame bounds.
	ErrInvalidROI = errors.New("region of interest has zero area")

	// ErrIndexOverflow is returned when the sample index no longer fits
	// the fixed-width filename format. Fatal.
	ErrIndexOverflow = errors.New("frame index exceeds filename width")
)
