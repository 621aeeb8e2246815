package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/pcmplay/internal/playback"
)

func TestPlaybackMetricsReflectSnapshot(t *testing.T) {
	t.Parallel()

	snap := playback.Snapshot{
		ID: "engine-1", Backend: "null", Active: true,
		SampleRate: 48000, FramesPerBuffer: 480, PoolSize: 4, ReadyCount: 3,
		Underruns: 7, Overruns: 2, Callbacks: 100,
	}
	registry := prometheus.NewRegistry()
	m, err := NewPlaybackMetrics(registry, func() playback.Snapshot { return snap })
	require.NoError(t, err)

	expected := `
# HELP pcmplay_playback_underruns_total Slots rendered from the underrun policy because no buffer was ready
# TYPE pcmplay_playback_underruns_total counter
pcmplay_playback_underruns_total{backend="null",engine_id="engine-1"} 7
# HELP pcmplay_playback_ready_buffers Buffers filled and waiting for the consumer
# TYPE pcmplay_playback_ready_buffers gauge
pcmplay_playback_ready_buffers{backend="null",engine_id="engine-1"} 3
# HELP pcmplay_playback_streaming 1 while the output stream is running
# TYPE pcmplay_playback_streaming gauge
pcmplay_playback_streaming{backend="null",engine_id="engine-1"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected),
		"pcmplay_playback_underruns_total", "pcmplay_playback_ready_buffers", "pcmplay_playback_streaming"))

	count, err := testutil.GatherAndCount(registry)
	require.NoError(t, err)
	assert.Equal(t, 14, count)

	snap.Underruns = 9
	assert.Equal(t, 14, testutil.CollectAndCount(m))
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(`
# HELP pcmplay_playback_underruns_total Slots rendered from the underrun policy because no buffer was ready
# TYPE pcmplay_playback_underruns_total counter
pcmplay_playback_underruns_total{backend="null",engine_id="engine-1"} 9
`), "pcmplay_playback_underruns_total"))
}

func TestPlaybackMetricsDuplicateRegistration(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	snap := func() playback.Snapshot { return playback.Snapshot{} }
	_, err := NewPlaybackMetrics(registry, snap)
	require.NoError(t, err)
	_, err = NewPlaybackMetrics(registry, snap)
	assert.Error(t, err)
}

func TestHTTPMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewHTTPMetrics(registry)
	require.NoError(t, err)

	m.RequestStarted()
	m.RequestStarted()
	assert.InDelta(t, 2.0, m.InFlight(), 0)

	m.RecordHTTPRequest("GET", "/healthz", 200, 0.001)
	assert.InDelta(t, 1.0, m.InFlight(), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/healthz", "200")), 0)
}
