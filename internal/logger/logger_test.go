package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		level    LogLevel
		emit     func(Logger)
		expected bool
	}{
		{"debug suppressed at info", LogLevelInfo, func(l Logger) { l.Debug("msg") }, false},
		{"info emitted at info", LogLevelInfo, func(l Logger) { l.Info("msg") }, true},
		{"warn emitted at info", LogLevelInfo, func(l Logger) { l.Warn("msg") }, true},
		{"trace suppressed at debug", LogLevelDebug, func(l Logger) { l.Trace("msg") }, false},
		{"trace emitted at trace", LogLevelTrace, func(l Logger) { l.Trace("msg") }, true},
		{"error always emitted", LogLevelError, func(l Logger) { l.Error("msg") }, true},
		{"explicit Log honours level", LogLevelWarn, func(l Logger) { l.Log(LogLevelInfo, "msg") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			buf := &bytes.Buffer{}
			tt.emit(NewSlogLogger(buf, tt.level, time.UTC))
			assert.Equal(t, tt.expected, buf.Len() > 0, buf.String())
		})
	}
}

func TestTraceLevelName(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	NewSlogLogger(buf, LogLevelTrace, time.UTC).Trace("deep")
	assert.Contains(t, buf.String(), "level=TRACE")
	assert.NotContains(t, buf.String(), "time=", "console output carries no timestamp")
}

func TestModuleAndFields(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelDebug, time.UTC).
		Module("playback").
		Module("malgo").
		With(String("backend", "alsa"))

	log.Info("stream opened",
		Int("sample_rate", 48000),
		Uint64("underruns", 3),
		Float64("latency_ms", 10.12345),
		Duration("period", 10*time.Millisecond),
		Bool("active", true),
		Error(errors.New("boom")))

	out := buf.String()
	assert.Contains(t, out, "module=playback.malgo")
	assert.Contains(t, out, "backend=alsa")
	assert.Contains(t, out, "sample_rate=48000")
	assert.Contains(t, out, "underruns=3")
	assert.Contains(t, out, "latency_ms=10.123")
	assert.Contains(t, out, "period=10ms")
	assert.Contains(t, out, "active=true")
	assert.Contains(t, out, "error=boom")
}

func TestWithDoesNotMutateParent(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	parent := NewSlogLogger(buf, LogLevelInfo, time.UTC).Module("engine")
	_ = parent.With(String("child_only", "x"))

	parent.Info("parent entry")
	assert.NotContains(t, buf.String(), "child_only")
}

func TestWithContextTraceID(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := NewSlogLogger(buf, LogLevelInfo, time.UTC)

	log.WithContext(WithTraceID(context.Background(), "abc-123")).Info("request")
	assert.Contains(t, buf.String(), "trace_id=abc-123")

	buf.Reset()
	log.WithContext(context.Background()).Info("no trace")
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestCentralLoggerFileOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mainPath := filepath.Join(dir, "logs", "main.log")
	modulePath := filepath.Join(dir, "logs", "http.log")

	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "debug",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: mainPath, Level: "debug"},
		ModuleOutputs: map[string]ModuleOutput{
			"http": {Enabled: true, FilePath: modulePath, Level: "info"},
		},
	})
	require.NoError(t, err)

	cl.Module("playback").Debug("pool full", Int("slots", 4))
	cl.Module("http").Debug("dropped below module level")
	cl.Module("http").Info("request served", String("path", "/healthz"))
	require.NoError(t, cl.Close())

	mainContent, err := os.ReadFile(mainPath) //nolint:gosec // test file path from t.TempDir()
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(mainContent), &entry))
	assert.Equal(t, "pool full", entry["msg"])
	assert.Equal(t, "playback", entry["module"])
	assert.Equal(t, "DEBUG", entry["level"])
	assert.InDelta(t, 4, entry["slots"], 0)
	_, err = time.Parse(time.RFC3339, entry["time"].(string))
	require.NoError(t, err)

	moduleContent, err := os.ReadFile(modulePath) //nolint:gosec // test file path from t.TempDir()
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(moduleContent)), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "request served")
}

func TestCentralLoggerRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)

	_, err = NewCentralLogger(nil)
	require.Error(t, err)
}

func TestBufferedFileWriter(t *testing.T) {
	t.Parallel()

	logPath := filepath.Join(t.TempDir(), "buffered.log")

	writer, err := NewBufferedFileWriter(logPath, WithFlushInterval(0), WithBufferSize(1024))
	require.NoError(t, err)

	_, err = writer.Write([]byte("first\n"))
	require.NoError(t, err)
	assert.Positive(t, writer.Buffered())
	require.NoError(t, writer.Flush())
	assert.Zero(t, writer.Buffered())

	_, err = writer.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.NoError(t, writer.Close(), "close is idempotent")

	_, err = writer.Write([]byte("late\n"))
	require.Error(t, err)

	content, err := os.ReadFile(logPath) //nolint:gosec // test file path from t.TempDir()
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(content))

	// Reopening appends
	writer, err = NewBufferedFileWriter(logPath)
	require.NoError(t, err)
	_, err = writer.Write([]byte("third\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	content, err = os.ReadFile(logPath) //nolint:gosec // test file path from t.TempDir()
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\nthird\n", string(content))
}
