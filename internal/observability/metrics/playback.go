package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tphakala/pcmplay/internal/playback"
)

// SnapshotFunc returns the current engine diagnostics
type SnapshotFunc func() playback.Snapshot

// PlaybackMetrics exports engine diagnostics. Values are read from the
// engine at scrape time, so nothing on the audio path touches Prometheus.
type PlaybackMetrics struct {
	snapshot SnapshotFunc

	counters []counterDesc
	gauges   []gaugeDesc
}

type counterDesc struct {
	desc  *prometheus.Desc
	value func(*playback.Snapshot) uint64
}

type gaugeDesc struct {
	desc  *prometheus.Desc
	value func(*playback.Snapshot) float64
}

// NewPlaybackMetrics creates the collector and registers it
func NewPlaybackMetrics(registry prometheus.Registerer, snapshot SnapshotFunc) (*PlaybackMetrics, error) {
	m := &PlaybackMetrics{snapshot: snapshot}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func newDesc(name, help string) *prometheus.Desc {
	return prometheus.NewDesc(
		prometheus.BuildFQName(Namespace, "playback", name),
		help,
		[]string{LabelEngineID, LabelBackend},
		nil,
	)
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (m *PlaybackMetrics) initMetrics() {
	m.counters = []counterDesc{
		{newDesc("underruns_total", "Slots rendered from the underrun policy because no buffer was ready"),
			func(s *playback.Snapshot) uint64 { return s.Underruns }},
		{newDesc("overruns_total", "Producer retries while every buffer was full"),
			func(s *playback.Snapshot) uint64 { return s.Overruns }},
		{newDesc("driver_underflows_total", "Output underflows reported by the host driver"),
			func(s *playback.Snapshot) uint64 { return s.DriverUnderflows }},
		{newDesc("driver_overflows_total", "Output overflows reported by the host driver"),
			func(s *playback.Snapshot) uint64 { return s.DriverOverflows }},
		{newDesc("driver_errors_total", "Failed driver start, stop or close calls and unexpected halts"),
			func(s *playback.Snapshot) uint64 { return s.DriverErrors }},
		{newDesc("callback_faults_total", "Panics recovered in the audio callback"),
			func(s *playback.Snapshot) uint64 { return s.CallbackFaults }},
		{newDesc("format_mismatches_total", "Callbacks whose size was not a whole number of buffers"),
			func(s *playback.Snapshot) uint64 { return s.FormatMismatches }},
		{newDesc("preroll_starts_total", "Streams started automatically once the pool filled"),
			func(s *playback.Snapshot) uint64 { return s.PrerollStarts }},
		{newDesc("callbacks_total", "Audio callbacks served"),
			func(s *playback.Snapshot) uint64 { return s.Callbacks }},
	}

	m.gauges = []gaugeDesc{
		{newDesc("ready_buffers", "Buffers filled and waiting for the consumer"),
			func(s *playback.Snapshot) float64 { return float64(s.ReadyCount) }},
		{newDesc("pool_buffers", "Buffers in the pool"),
			func(s *playback.Snapshot) float64 { return float64(s.PoolSize) }},
		{newDesc("streaming", "1 while the output stream is running"),
			func(s *playback.Snapshot) float64 { return boolGauge(s.Active) }},
		{newDesc("halted", "1 after the driver stopped the stream on its own"),
			func(s *playback.Snapshot) float64 { return boolGauge(s.Halted) }},
		{newDesc("buffer_seconds", "Duration of one buffer"),
			func(s *playback.Snapshot) float64 {
				if s.SampleRate == 0 {
					return 0
				}
				return float64(s.FramesPerBuffer) / float64(s.SampleRate)
			}},
	}
}

// Describe implements the Collector interface
func (m *PlaybackMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.counters {
		ch <- c.desc
	}
	for _, g := range m.gauges {
		ch <- g.desc
	}
}

// Collect implements the Collector interface
func (m *PlaybackMetrics) Collect(ch chan<- prometheus.Metric) {
	s := m.snapshot()
	for _, c := range m.counters {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, float64(c.value(&s)), s.ID, s.Backend)
	}
	for _, g := range m.gauges {
		ch <- prometheus.MustNewConstMetric(g.desc, prometheus.GaugeValue, g.value(&s), s.ID, s.Backend)
	}
}
