// Package observability serves engine status, device listings and Prometheus
// metrics over HTTP.
package observability

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tphakala/pcmplay/internal/errors"
	"github.com/tphakala/pcmplay/internal/logger"
	"github.com/tphakala/pcmplay/internal/observability/metrics"
	"github.com/tphakala/pcmplay/internal/playback"
)

const componentTelemetry = "observability"

// Config configures the status endpoint
type Config struct {
	Listen  string // host:port
	HostAPI string // host API passed to the device lister
	Version string // reported by /healthz
}

// Endpoint is the HTTP status server
type Endpoint struct {
	cfg      Config
	echo     *echo.Echo
	registry *prometheus.Registry
	http     *metrics.HTTPMetrics
	snapshot metrics.SnapshotFunc
	devices  playback.DeviceLister

	mu sync.Mutex
	ln net.Listener
}

// NewEndpoint builds the server. devices may be nil when the backend cannot enumerate.
func NewEndpoint(cfg Config, snapshot metrics.SnapshotFunc, devices playback.DeviceLister) (*Endpoint, error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, err
	}
	if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, err
	}
	if _, err := metrics.NewPlaybackMetrics(registry, snapshot); err != nil {
		return nil, err
	}
	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, err
	}

	e := &Endpoint{
		cfg:      cfg,
		echo:     echo.New(),
		registry: registry,
		http:     httpMetrics,
		snapshot: snapshot,
		devices:  devices,
	}
	e.echo.HideBanner = true
	e.echo.HidePort = true
	e.echo.Server.ReadTimeout = 10 * time.Second
	e.echo.Server.WriteTimeout = 10 * time.Second

	e.echo.Use(echomw.Recover())
	e.echo.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.echo.Use(e.requestMetrics)

	e.echo.GET("/healthz", e.handleHealth)
	e.echo.GET("/api/v1/playback", e.handlePlayback)
	e.echo.GET("/api/v1/devices", e.handleDevices)
	e.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})))

	return e, nil
}

// Handler returns the HTTP handler, for tests and embedding
func (e *Endpoint) Handler() http.Handler {
	return e.echo
}

// Registry returns the Prometheus registry the endpoint serves
func (e *Endpoint) Registry() *prometheus.Registry {
	return e.registry
}

// Listen binds the configured address. Run calls it if needed.
func (e *Endpoint) Listen() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", e.cfg.Listen)
	if err != nil {
		return errors.New(err).
			Component(componentTelemetry).
			Category(errors.CategoryNetwork).
			Context("listen", e.cfg.Listen).
			Build()
	}
	e.ln = ln
	return nil
}

// Addr returns the bound address, or nil before Listen
func (e *Endpoint) Addr() net.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ln == nil {
		return nil
	}
	return e.ln.Addr()
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (e *Endpoint) Run(ctx context.Context) error {
	if err := e.Listen(); err != nil {
		return err
	}
	e.mu.Lock()
	e.echo.Listener = e.ln
	e.mu.Unlock()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("status endpoint starting", logger.String("address", e.Addr().String()))
		serveErr <- e.echo.Start("")
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.New(err).
			Component(componentTelemetry).
			Category(errors.CategoryNetwork).
			Context("operation", "serve").
			Build()
	case <-ctx.Done():
	}

	log.Info("stopping status endpoint")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), metrics.ShutdownTimeout)
	defer cancel()
	if err := e.echo.Shutdown(shutdownCtx); err != nil {
		log.Error("status endpoint shutdown error", logger.Error(err))
		return err
	}
	<-serveErr
	return nil
}

func (e *Endpoint) requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		e.http.RequestStarted()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		status := c.Response().Status
		e.http.RecordHTTPRequest(c.Request().Method, c.Path(), status, time.Since(start).Seconds())
		log.Trace("http request",
			logger.String("method", c.Request().Method),
			logger.String("path", c.Path()),
			logger.Int("status", status),
			logger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
		return nil
	}
}

type healthResponse struct {
	Status  string         `json:"status"`
	State   playback.State `json:"state"`
	Version string         `json:"version,omitempty"`
}

func (e *Endpoint) handleHealth(c echo.Context) error {
	s := e.snapshot()
	resp := healthResponse{Status: "ok", State: s.State, Version: e.cfg.Version}
	if s.Halted || s.State == playback.StateTornDown {
		resp.Status = "unavailable"
		return c.JSON(http.StatusServiceUnavailable, resp)
	}
	return c.JSON(http.StatusOK, resp)
}

func (e *Endpoint) handlePlayback(c echo.Context) error {
	return c.JSON(http.StatusOK, e.snapshot())
}

func (e *Endpoint) handleDevices(c echo.Context) error {
	if e.devices == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "backend cannot enumerate devices")
	}
	hostAPI := c.QueryParam("hostapi")
	if hostAPI == "" {
		hostAPI = e.cfg.HostAPI
	}
	devices, err := e.devices.Devices(hostAPI)
	if err != nil {
		if errors.Is(err, playback.ErrUnknownHostAPI) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		log.Warn("device enumeration failed", logger.Error(err), logger.String("host_api", hostAPI))
		return echo.NewHTTPError(http.StatusBadGateway, "device enumeration failed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, devices)
}
