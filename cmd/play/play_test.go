package play

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/pcmplay/internal/conf"
	"github.com/tphakala/pcmplay/internal/playback"
	"github.com/tphakala/pcmplay/internal/source"
)

func writeTone(t *testing.T, rate, frames int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	data := make([]int, frames)
	for i := range data {
		data[i] = 8192
	}
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{SampleRate: rate, NumChannels: 1},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func nullSettings(rate int) *conf.Settings {
	return &conf.Settings{
		Playback: conf.PlaybackSettings{
			SampleRate:     rate,
			Channels:       2,
			BufferCount:    2,
			BufferDuration: 10 * time.Millisecond,
			Policy:         "silence",
			Backend:        conf.BackendNull,
		},
	}
}

func TestRunPlaysFileThroughNullBackend(t *testing.T) {
	t.Parallel()

	path := writeTone(t, 8000, 800)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, run(ctx, nullSettings(8000), path, false, "test"))
}

func TestRunRefusesSampleRateMismatch(t *testing.T) {
	t.Parallel()

	path := writeTone(t, 8000, 80)
	err := run(context.Background(), nullSettings(48000), path, false, "test")
	require.Error(t, err)
	assert.ErrorIs(t, err, playback.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "--samplerate 8000")
}

func TestRunRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	err := run(context.Background(), nullSettings(8000), "track.flac", false, "test")
	assert.ErrorIs(t, err, source.ErrUnsupportedFormat)
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	path := writeTone(t, 8000, 8000*30)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	start := time.Now()
	require.NoError(t, run(ctx, nullSettings(8000), path, false, "test"))
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestCommandAnnotatesFlags(t *testing.T) {
	t.Parallel()

	cmd := Command(&conf.Settings{}, "test")
	flag := cmd.Flags().Lookup("buffer-duration")
	require.NotNil(t, flag)
	assert.Equal(t, []string{"playback.bufferduration"}, flag.Annotations[conf.FlagAnnotation])
}
