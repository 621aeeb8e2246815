package observability

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/pcmplay/internal/errors"
	"github.com/tphakala/pcmplay/internal/playback"
)

type fakeLister struct {
	devices []playback.DeviceInfo
	err     error
	gotAPI  string
}

func (f *fakeLister) Devices(hostAPI string) ([]playback.DeviceInfo, error) {
	f.gotAPI = hostAPI
	return f.devices, f.err
}

func newTestEndpoint(t *testing.T, snap playback.Snapshot, lister playback.DeviceLister) *Endpoint {
	t.Helper()
	e, err := NewEndpoint(Config{Listen: "127.0.0.1:0", HostAPI: "alsa", Version: "test"},
		func() playback.Snapshot { return snap }, lister)
	require.NoError(t, err)
	return e
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, http.NoBody))
	return rec
}

func TestHealthReflectsEngineState(t *testing.T) {
	t.Parallel()

	e := newTestEndpoint(t, playback.Snapshot{State: playback.StateStreaming, Active: true}, nil)
	rec := get(t, e.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","state":"streaming","version":"test"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	e = newTestEndpoint(t, playback.Snapshot{State: playback.StateReady, Halted: true}, nil)
	rec = get(t, e.Handler(), "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPlaybackStatus(t *testing.T) {
	t.Parallel()

	snap := playback.Snapshot{ID: "abc", Backend: "null", State: playback.StateReady, Policy: playback.PolicyTone, PoolSize: 4, Underruns: 3}
	e := newTestEndpoint(t, snap, nil)

	rec := get(t, e.Handler(), "/api/v1/playback")
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "abc", got["id"])
	assert.Equal(t, "ready", got["state"])
	assert.Equal(t, "tone", got["policy"])
	assert.InDelta(t, 3, got["underruns"], 0)
}

func TestDevices(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{devices: []playback.DeviceInfo{{Name: "USB Audio", ID: ":1,0", Default: true, HostAPI: "alsa"}}}
	e := newTestEndpoint(t, playback.Snapshot{}, lister)

	rec := get(t, e.Handler(), "/api/v1/devices")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alsa", lister.gotAPI)
	assert.JSONEq(t, `[{"index":0,"name":"USB Audio","id":":1,0","default":true,"hostApi":"alsa"}]`, rec.Body.String())

	rec = get(t, e.Handler(), "/api/v1/devices?hostapi=pulseaudio")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pulseaudio", lister.gotAPI)
}

func TestDevicesErrors(t *testing.T) {
	t.Parallel()

	e := newTestEndpoint(t, playback.Snapshot{}, nil)
	assert.Equal(t, http.StatusNotImplemented, get(t, e.Handler(), "/api/v1/devices").Code)

	unknown := &fakeLister{err: errors.New(playback.ErrUnknownHostAPI).Build()}
	e = newTestEndpoint(t, playback.Snapshot{}, unknown)
	assert.Equal(t, http.StatusBadRequest, get(t, e.Handler(), "/api/v1/devices").Code)

	broken := &fakeLister{err: errors.NewStd("backend exploded")}
	e = newTestEndpoint(t, playback.Snapshot{}, broken)
	assert.Equal(t, http.StatusBadGateway, get(t, e.Handler(), "/api/v1/devices").Code)
}

func TestMetricsExposition(t *testing.T) {
	t.Parallel()

	e := newTestEndpoint(t, playback.Snapshot{ID: "abc", Backend: "null", Underruns: 5}, nil)
	_ = get(t, e.Handler(), "/healthz")

	rec := get(t, e.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `pcmplay_playback_underruns_total{backend="null",engine_id="abc"} 5`)
	assert.Contains(t, body, `pcmplay_http_requests_total{method="GET",path="/healthz",status="200"} 1`)
	assert.Contains(t, body, "go_goroutines")
}

func TestRunServesAndShutsDown(t *testing.T) {
	t.Parallel()

	e := newTestEndpoint(t, playback.Snapshot{State: playback.StateReady}, nil)
	require.NoError(t, e.Listen())
	addr := e.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/healthz")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `"status":"ok"`))
	client.CloseIdleConnections()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("endpoint did not shut down")
	}
}

func TestListenFailure(t *testing.T) {
	t.Parallel()

	e, err := NewEndpoint(Config{Listen: "256.0.0.1:bad"}, func() playback.Snapshot { return playback.Snapshot{} }, nil)
	require.NoError(t, err)
	assert.True(t, errors.IsCategory(e.Run(context.Background()), errors.CategoryNetwork))
}
