//go:build !playbackdebug

package playback

func assertSampleRange(float32) {}

func assertReadyBounds(int32, int32) {}
