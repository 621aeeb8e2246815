package errors

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	mu       sync.Mutex
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reported = append(r.reported, ee)
	ee.MarkReported()
}

func (r *recordingReporter) IsEnabled() bool { return true }

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.IsReported())
}

func TestBuildReportsWhenReporterInstalled(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(fmt.Errorf("device open failed")).
		Component("playback.malgo").
		Context("backend", "alsa").
		Build()

	require.Len(t, reporter.reported, 1)
	assert.True(t, ee.IsReported())
	assert.Equal(t, CategoryAudioDevice, ee.Category, "category detected from message")
	assert.Equal(t, "alsa", ee.GetContext()["backend"])
}

func TestSentinelMatchingThroughWrap(t *testing.T) {
	sentinel := New(NewStd("invalid playback configuration")).
		Component("playback").
		Category(CategoryValidation).
		Build()

	wrapped := New(fmt.Errorf("%w: channels must be 1 or 2", sentinel)).
		Component("playback").
		Category(CategoryValidation).
		Build()

	assert.True(t, Is(wrapped, sentinel))
	assert.True(t, IsCategory(wrapped, CategoryValidation))
	assert.False(t, Is(ValidationError("something else"), sentinel))
}

func TestContextIsCopied(t *testing.T) {
	ee := New(NewStd("x")).Context("k", "v").Build()
	ctx := ee.GetContext()
	ctx["k"] = "changed"
	assert.Equal(t, "v", ee.GetContext()["k"])
}

func TestStreamContext(t *testing.T) {
	ee := New(NewStd("format rejected")).StreamContext(48000, 2, 480).Build()
	ctx := ee.GetContext()
	assert.Equal(t, 48000, ctx["sample_rate"])
	assert.Equal(t, 2, ctx["channels"])
	assert.Equal(t, 480, ctx["frames_per_buffer"])
}

func TestPriorityFallback(t *testing.T) {
	assert.Equal(t, PriorityHigh, New(NewStd("x")).Priority(PriorityHigh).Build().GetPriority())
	assert.Equal(t, PriorityMedium, New(NewStd("x")).Priority("urgent").Build().GetPriority())
	assert.Empty(t, New(NewStd("x")).Build().GetPriority())
}

func TestLookupComponentPrefersLongestPattern(t *testing.T) {
	assert.Equal(t, "playback.malgo",
		lookupComponent("github.com/tphakala/pcmplay/internal/playback/malgo.(*Driver).Open"))
	assert.Equal(t, "playback",
		lookupComponent("github.com/tphakala/pcmplay/internal/playback.(*Engine).Start"))
}

func TestRegexPrecompilation(t *testing.T) {
	scrubbed := basicURLScrub("Error at https://api.example.com?api_key=secret123&token=abc")
	assert.Equal(t, "Error at https://api.example.com?[REDACTED]", scrubbed)

	scrubbed = basicURLScrub("Config error: api_key=secret123 is invalid")
	assert.Contains(t, scrubbed, "[API_KEY_REDACTED]")

	scrubbed = basicURLScrub("Auth failed with token=abc123 and auth=xyz789")
	assert.NotContains(t, scrubbed, "abc123")
	assert.NotContains(t, scrubbed, "xyz789")

	scrubbed = basicURLScrub("open failed for device_id=hw:1,0")
	assert.Contains(t, scrubbed, "[ID_REDACTED]")
}

func TestGenerateErrorTitle(t *testing.T) {
	ee := New(NewStd("boom")).
		Component("playback").
		Category(CategoryAudioDevice).
		Context("operation", "start_stream").
		Build()
	assert.Equal(t, "Playback Audio Device Error Start Stream", generateErrorTitle(ee))
}
