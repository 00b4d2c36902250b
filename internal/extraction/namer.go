package extraction

import (
	"fmt"

	"github.com/framegrab/framegrab-extraction-service/internal/domain/entity"
)

// maxFrameIndex bounds the zero-padded index field at six digits. Rather
// than widening the field silently (which would break lexical ordering
// mid-run), indices past the bound fail the job.
const maxFrameIndex = 1_000_000

// FrameFileName returns the output filename for one sample, e.g.
// "frame_000001_t0.50s.jpg". Indices are unique and strictly increasing
// within a run, which makes the naming collision-free.
func FrameFileName(index int, timestampSeconds float64) (string, error) {
	if index < 0 || index >= maxFrameIndex {
		return "", fmt.Errorf("%w: index %d", entity.ErrIndexOverflow, index)
	}
	return fmt.Sprintf("frame_%06d_t%.2fs.jpg", index, timestampSeconds), nil
}
