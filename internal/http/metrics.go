// Package http provides the REST API of the oil price service.
package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the API.
type Metrics struct {
	// HTTP request metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics
	AuthAttemptsTotal *prometheus.CounterVec

	// Database metrics
	RowsStored *prometheus.GaugeVec
}

// NewMetrics creates metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oilpriceapi_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "oilpriceapi_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		AuthAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oilpriceapi_auth_attempts_total",
				Help: "Total number of register and login attempts by outcome",
			},
			[]string{"operation", "outcome"},
		),
		RowsStored: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "oilpriceapi_rows_stored",
				Help: "Number of rows stored in the database by table",
			},
			[]string{"table"},
		),
	}
}

// RecordHTTPRequest records an HTTP request metric.
func (m *Metrics) RecordHTTPRequest(method, route, status string, duration float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration)
}

// RecordAuthAttempt records a register or login attempt.
func (m *Metrics) RecordAuthAttempt(operation, outcome string) {
	m.AuthAttemptsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordRowsStored records the number of rows stored in a table.
func (m *Metrics) RecordRowsStored(table string, count float64) {
	m.RowsStored.WithLabelValues(table).Set(count)
}
