package extraction

import (
	"testing"

	"github.com/framegrab/framegrab-extraction-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameFileNameFormat(t *testing.T) {
	name, err := FrameFileName(1, 0)
	require.NoError(t, err)
	assert.Equal(t, "frame_000001_t0.00s.jpg", name)

	name, err = FrameFileName(42, 12.345)
	require.NoError(t, err)
	assert.Equal(t, "frame_000042_t12.35s.jpg", name)

	name, err = FrameFileName(999999, 3599.99)
	require.NoError(t, err)
	assert.Equal(t, "frame_999999_t3599.99s.jpg", name)
}

func TestFrameFileNameInjective(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 5000; i++ {
		// Same timestamp for every index: uniqueness must come from
		// the index alone.
		name, err := FrameFileName(i, 1.0)
		require.NoError(t, err)
		assert.False(t, seen[name], "duplicate filename %s", name)
		seen[name] = true
	}
}

func TestFrameFileNameOverflow(t *testing.T) {
	_, err := FrameFileName(1_000_000, 0)
	assert.ErrorIs(t, err, entity.ErrIndexOverflow)

	_, err = FrameFileName(-1, 0)
	assert.ErrorIs(t, err, entity.ErrIndexOverflow)
}
