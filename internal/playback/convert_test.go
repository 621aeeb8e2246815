//go:build !playbackdebug

package playback

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToSampleClampsOutOfRangeInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float32
		want int16
	}{
		{0, 0},
		{0.5, 16384},
		{-0.5, -16384},
		{1, 32767},
		{-1, -32767},
		{1.5, 32767},
		{-2, -32767},
		{float32(math.NaN()), 0},
		{float32(math.Inf(1)), 32767},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, toSample(tt.in), "input %v", tt.in)
	}
}
