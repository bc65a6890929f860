// Copyright (c) 2026 Folio Works. All rights reserved.

// Package metrics collects and exposes Prometheus metrics for the API server.
//
// # Architecture
//
// A single [Collector] is registered at startup and shared by the HTTP
// middleware. Domain code never touches Prometheus types directly.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector aggregates the API-level Prometheus metrics.
type Collector struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	realtimeClients prometheus.Gauge
}

// NewCollector creates a Collector with its own registry.
//
// A private registry keeps the /metrics output limited to what we register,
// plus the standard Go process collectors.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	collector := &Collector{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_http_requests_total",
			Help: "Number of HTTP requests handled, by method and status code.",
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "folio_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		realtimeClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "folio_realtime_clients",
			Help: "Number of currently connected realtime subscribers.",
		}),
	}

	registry.MustRegister(
		collector.requestsTotal,
		collector.requestDuration,
		collector.realtimeClients,
		prometheus.NewGoCollector(),
	)

	return collector
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RealtimeClientConnected records a new realtime subscriber.
func (c *Collector) RealtimeClientConnected() { c.realtimeClients.Inc() }

// RealtimeClientDisconnected records a departed realtime subscriber.
func (c *Collector) RealtimeClientDisconnected() { c.realtimeClients.Dec() }

// # HTTP Instrumentation

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working behind the instrumentation wrapper.
func (recorder *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := recorder.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics_hijack_unsupported")
	}
	return hijacker.Hijack()
}

// Middleware instruments every request with count and latency metrics.
func (c *Collector) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			startTime := time.Now()
			wrapped := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}

			next.ServeHTTP(wrapped, request)

			c.requestsTotal.WithLabelValues(request.Method, strconv.Itoa(wrapped.status)).Inc()
			c.requestDuration.WithLabelValues(request.Method).Observe(time.Since(startTime).Seconds())
		})
	}
}
