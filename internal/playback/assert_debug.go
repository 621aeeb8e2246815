//go:build playbackdebug

package playback

import "fmt"

func assertSampleRange(s float32) {
	if s != s || s < -1 || s > 1 {
		panic(fmt.Sprintf("playback: sample %v outside [-1, 1]", s))
	}
}

func assertReadyBounds(n, capacity int32) {
	if n < 0 || n > capacity {
		panic(fmt.Sprintf("playback: ready count %d outside [0, %d]", n, capacity))
	}
}
