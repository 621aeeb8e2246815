package oto

import (
	"encoding/binary"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/pcmplay/internal/playback"
)

// countingCallback fills each slot with its call number
type countingCallback struct {
	mu     sync.Mutex
	calls  int
	sizes  []int
	times  []time.Duration
	result playback.CallbackResult
}

func (c *countingCallback) render(out []int16, info playback.CallbackInfo) playback.CallbackResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.sizes = append(c.sizes, len(out))
	c.times = append(c.times, info.Time)
	for i := range out {
		out[i] = int16(c.calls)
	}
	return c.result
}

func samples(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}

func TestReaderSilentUntilStarted(t *testing.T) {
	t.Parallel()

	cb := &countingCallback{}
	r := newCallbackReader(cb.render, 2, 4, 8000)

	p := []byte{1, 2, 3, 4}
	n, err := r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{0, 0, 0, 0}, p)
	assert.Zero(t, cb.calls)
}

func TestReaderStagesWholeSlotsForArbitraryReads(t *testing.T) {
	t.Parallel()

	cb := &countingCallback{}
	r := newCallbackReader(cb.render, 2, 4, 8000) // 8 samples, 16 bytes per slot
	r.start()

	// 10 + 10 + 12 bytes spans exactly two slots
	var got []int16
	for _, size := range []int{10, 10, 12} {
		p := make([]byte, size)
		n, err := r.Read(p)
		require.NoError(t, err)
		require.Equal(t, size, n)
		got = append(got, samples(p)...)
	}

	assert.Equal(t, 2, cb.calls)
	assert.Equal(t, []int{8, 8}, cb.sizes, "callback always sees a full slot")
	assert.Equal(t, []int16{1, 1, 1, 1, 1, 1, 1, 1, 2, 2, 2, 2, 2, 2, 2, 2}, got)
	assert.Equal(t, []time.Duration{0, 500 * time.Microsecond}, cb.times)
}

func TestReaderStopHaltsCallbacks(t *testing.T) {
	t.Parallel()

	cb := &countingCallback{}
	r := newCallbackReader(cb.render, 1, 4, 8000)
	r.start()

	_, err := r.Read(make([]byte, 4))
	require.NoError(t, err)
	r.stop()

	p := make([]byte, 8)
	_, err = r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 8), p)
	assert.Equal(t, 1, cb.calls)

	// restart discards the half-consumed slot
	r.start()
	p = make([]byte, 8)
	_, err = r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, []int16{2, 2, 2, 2}, samples(p))
}

func TestReaderCompleteProducesSilence(t *testing.T) {
	t.Parallel()

	cb := &countingCallback{result: playback.Complete}
	r := newCallbackReader(cb.render, 1, 2, 8000)
	r.start()

	p := make([]byte, 12)
	_, err := r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, []int16{1, 1, 0, 0, 0, 0}, samples(p))
	assert.Equal(t, 1, cb.calls)
}

func TestCheckHostAPI(t *testing.T) {
	t.Parallel()

	require.NoError(t, checkHostAPI(""))
	require.NoError(t, checkHostAPI("oto"))
	assert.ErrorIs(t, checkHostAPI("jack"), playback.ErrUnknownHostAPI)
}

func TestDevicesListsDefaultOnly(t *testing.T) {
	t.Parallel()

	devices, err := NewDriver(nil).Devices("")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.True(t, devices[0].Default)
}

func TestOpenRejectsNamedDevice(t *testing.T) {
	t.Parallel()

	_, err := NewDriver(nil).Open(playback.StreamParams{
		SampleRate: 48000, Channels: 2, FramesPerBuffer: 480, Device: "hw:1,0",
	}, func([]int16, playback.CallbackInfo) playback.CallbackResult { return playback.Continue }, playback.StreamHooks{})
	assert.ErrorIs(t, err, playback.ErrNoDevice)
}

// bufferingPlayer models oto's player: Play tops up an internal buffer
// from the source, Pause keeps it, Seek on a seekable source clears it.
type bufferingPlayer struct {
	src    io.Reader
	size   int
	buf    []byte
	closed bool
}

func (p *bufferingPlayer) Play() {
	for len(p.buf) < p.size {
		chunk := make([]byte, p.size-len(p.buf))
		n, _ := p.src.Read(chunk)
		p.buf = append(p.buf, chunk[:n]...)
	}
}

func (p *bufferingPlayer) Pause() {}

func (p *bufferingPlayer) Seek(offset int64, whence int) (int64, error) {
	p.buf = p.buf[:0]
	return p.src.(io.Seeker).Seek(offset, whence)
}

func (p *bufferingPlayer) Err() error { return nil }

func (p *bufferingPlayer) Close() error {
	p.closed = true
	return nil
}

// output drains n bytes the way the device would
func (p *bufferingPlayer) output(n int) []byte {
	out := p.buf[:n]
	p.buf = p.buf[n:]
	return out
}

func TestStreamRestartDoesNotReplayQueuedAudio(t *testing.T) {
	t.Parallel()

	cb := &countingCallback{}
	r := newCallbackReader(cb.render, 1, 4, 8000) // 8 bytes per slot
	p := &bufferingPlayer{src: r, size: 16}
	s := &stream{player: p, reader: r}

	require.NoError(t, s.Start())
	require.Equal(t, 2, cb.calls, "player queued two slots")
	assert.Equal(t, []int16{1, 1, 1, 1}, samples(p.output(8)))

	require.NoError(t, s.Stop())
	assert.Empty(t, p.buf, "queued slot 2 dropped on stop")

	require.NoError(t, s.Start())
	assert.Equal(t, []int16{3, 3, 3, 3}, samples(p.output(8)), "restart plays fresh callbacks only")

	require.NoError(t, s.Close())
	assert.True(t, p.closed)
}

func TestReaderSeekDiscardsStagedTail(t *testing.T) {
	t.Parallel()

	cb := &countingCallback{}
	r := newCallbackReader(cb.render, 1, 4, 8000)
	r.start()

	_, err := r.Read(make([]byte, 2))
	require.NoError(t, err)

	pos, err := r.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Zero(t, pos)

	p := make([]byte, 8)
	_, err = r.Read(p)
	require.NoError(t, err)
	assert.Equal(t, []int16{2, 2, 2, 2}, samples(p))

	_, err = r.Seek(16, io.SeekStart)
	require.Error(t, err)
}
