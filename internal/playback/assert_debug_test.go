//go:build playbackdebug

package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDebugBuildRejectsOutOfRangeSamples(t *testing.T) {
	assert.Panics(t, func() { toSample(1.01) })
	assert.Panics(t, func() { toSample(-3) })
	assert.NotPanics(t, func() { toSample(-1) })

	var c readyCounter
	c.capacity = 1
	c.increment()
	assert.Panics(t, func() { c.increment() })
}
