// SPDX-FileCopyrightText: Copyright 2025 Aperture Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry exposes Prometheus instrumentation for the gateway.
//
// A single Metrics value is shared between the session manager, the
// connection mux, and the HTTP server. All recording methods are safe to
// call on a nil receiver so that components can run without metrics wired
// in (tests, embedded use).
package telemetry

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "aperture"

// Metrics is a collection of Prometheus collectors for the gateway.
type Metrics struct {
	registry *prometheus.Registry

	sessionsCreated    *prometheus.CounterVec
	sessionsEnded      *prometheus.CounterVec
	liveSessions       prometheus.Gauge
	eventsFanned       prometheus.Counter
	subscribersDropped prometheus.Counter
	inboundFrames      *prometheus.CounterVec
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewMetrics creates and registers the gateway collectors on a private
// registry, along with the standard Go runtime and process collectors.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_created_total",
				Help:      "Number of sessions created, by agent backend.",
			},
			[]string{"agent"},
		),
		sessionsEnded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_ended_total",
				Help:      "Number of sessions ended, by reason.",
			},
			[]string{"reason"},
		),
		liveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "live_sessions",
				Help:      "Number of sessions currently resident in memory.",
			},
		),
		eventsFanned: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_events_total",
				Help:      "Number of backend events fanned out to subscribers.",
			},
		),
		subscribersDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subscribers_dropped_total",
				Help:      "Number of subscribers dropped for not keeping up.",
			},
		),
		inboundFrames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "inbound_frames_total",
				Help:      "Number of inbound WebSocket frames, by command type.",
			},
			[]string{"type"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Number of HTTP requests handled, by method, route and status code.",
			},
			[]string{"method", "path", "code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency, by method and route.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	err := registerAll(m.registry,
		m.sessionsCreated,
		m.sessionsEnded,
		m.liveSessions,
		m.eventsFanned,
		m.subscribersDropped,
		m.inboundFrames,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func registerAll(reg *prometheus.Registry, cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SessionCreated records a session admission for the given agent backend.
func (m *Metrics) SessionCreated(agent string) {
	if m == nil {
		return
	}
	m.sessionsCreated.WithLabelValues(agent).Inc()
}

// SessionEnded records a session reaching its terminal state.
func (m *Metrics) SessionEnded(reason string) {
	if m == nil {
		return
	}
	m.sessionsEnded.WithLabelValues(reason).Inc()
}

// SetLiveSessions records the current number of resident sessions.
func (m *Metrics) SetLiveSessions(n int) {
	if m == nil {
		return
	}
	m.liveSessions.Set(float64(n))
}

// EventFanned records one event delivered to one subscriber.
func (m *Metrics) EventFanned() {
	if m == nil {
		return
	}
	m.eventsFanned.Inc()
}

// SubscriberDropped records a subscriber evicted for falling behind.
func (m *Metrics) SubscriberDropped() {
	if m == nil {
		return
	}
	m.subscribersDropped.Inc()
}

// InboundFrame records an inbound WebSocket command frame.
func (m *Metrics) InboundFrame(frameType string) {
	if m == nil {
		return
	}
	m.inboundFrames.WithLabelValues(frameType).Inc()
}
