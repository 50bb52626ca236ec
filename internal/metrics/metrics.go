// Package metrics exposes Prometheus collectors for the service client and
// the Telegram front end.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "longopass"

// Metrics holds the application collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	serviceUp   prometheus.Gauge
	rateLimited prometheus.Counter
	widgets     prometheus.Gauge
	circuitOpen prometheus.Gauge
}

// New creates and registers the collectors. Go runtime and process
// collectors are included.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Requests sent to the AI service by route, method and outcome.",
		}, []string{"route", "method", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Latency of requests sent to the AI service.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"route", "method"}),
		serviceUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_up",
			Help:      "1 when the last health check of the AI service succeeded.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "rate_limited_total",
			Help:      "Telegram updates dropped by the per-chat rate limit.",
		}),
		widgets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bot",
			Name:      "widgets",
			Help:      "Chat widgets currently held in memory.",
		}),
		circuitOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "circuit_open",
			Help:      "1 while the circuit breaker rejects requests to the AI service.",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.serviceUp,
		m.rateLimited,
		m.widgets,
		m.circuitOpen,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one client request.
func (m *Metrics) ObserveRequest(route, method, outcome string, d time.Duration) {
	m.requests.WithLabelValues(route, method, outcome).Inc()
	m.duration.WithLabelValues(route, method).Observe(d.Seconds())
}

// SetServiceUp records the result of a health check.
func (m *Metrics) SetServiceUp(up bool) {
	if up {
		m.serviceUp.Set(1)
		return
	}
	m.serviceUp.Set(0)
}

// IncRateLimited counts one dropped update.
func (m *Metrics) IncRateLimited() {
	m.rateLimited.Inc()
}

// SetWidgets records the number of live widgets.
func (m *Metrics) SetWidgets(n int) {
	m.widgets.Set(float64(n))
}

// SetCircuitOpen records whether the circuit breaker is rejecting requests.
// A half-open breaker counts as open.
func (m *Metrics) SetCircuitOpen(open bool) {
	if open {
		m.circuitOpen.Set(1)
		return
	}
	m.circuitOpen.Set(0)
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve runs an HTTP server exposing Handler on addr under path until ctx
// is done.
func (m *Metrics) Serve(ctx context.Context, addr, path string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Metrics server listening", "addr", addr, "path", path)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down metrics server", "error", err)
		}
		logger.Info("Metrics server stopped.")
		return nil
	}
}
