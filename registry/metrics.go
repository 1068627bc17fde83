// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package registry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds the Prometheus metrics of a registry. A nil *Metrics
// records nothing.
type Metrics struct {
	decodesTotal   *prometheus.CounterVec
	decodeDuration *prometheus.HistogramVec
	decodedBytes   *prometheus.CounterVec
	installsTotal  *prometheus.CounterVec
	mapsRegistered prometheus.Gauge
}

// NewMetrics creates the registry metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		decodesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recordmap_decodes_total",
				Help: "Total number of buffers decoded",
			},
			[]string{"map", "status"},
		),

		decodeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recordmap_decode_duration_seconds",
				Help:    "Decode duration in seconds",
				Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
			[]string{"map"},
		),

		decodedBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recordmap_decoded_bytes_total",
				Help: "Total size of successfully decoded buffers in bytes",
			},
			[]string{"map"},
		),

		installsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recordmap_map_installs_total",
				Help: "Total number of map registrations that replaced or added a map",
			},
			[]string{"map"},
		),

		mapsRegistered: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "recordmap_maps_registered",
				Help: "Number of maps currently registered",
			},
		),
	}
}

func (m *Metrics) recordDecode(name string, size int, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	m.decodesTotal.WithLabelValues(name, status).Inc()
	m.decodeDuration.WithLabelValues(name).Observe(duration.Seconds())
	if err == nil {
		m.decodedBytes.WithLabelValues(name).Add(float64(size))
	}
}

func (m *Metrics) recordInstall(name string, registered int) {
	if m == nil {
		return
	}
	m.installsTotal.WithLabelValues(name).Inc()
	m.mapsRegistered.Set(float64(registered))
}

func (m *Metrics) recordRemove(registered int) {
	if m == nil {
		return
	}
	m.mapsRegistered.Set(float64(registered))
}
