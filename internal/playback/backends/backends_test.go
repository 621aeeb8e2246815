package backends

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/pcmplay/internal/playback"
)

func TestNewKnownBackends(t *testing.T) {
	t.Parallel()

	for _, name := range Names {
		d, err := New(name, nil)
		require.NoError(t, err, name)
		assert.Equal(t, name, d.Name())
	}
}

func TestNullBackendIsClocked(t *testing.T) {
	t.Parallel()

	d, err := New(playback.HeadlessDriverName, nil)
	require.NoError(t, err)
	headless, ok := d.(*playback.HeadlessDriver)
	require.True(t, ok)
	assert.True(t, headless.Clocked)

	devices, err := d.Devices("")
	require.NoError(t, err)
	assert.NotEmpty(t, devices)
}

func TestNewUnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := New("asio", nil)
	assert.ErrorIs(t, err, playback.ErrInvalidConfig)
}
