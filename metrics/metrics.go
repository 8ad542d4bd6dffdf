// Package metrics holds the Prometheus collectors the relay reports to.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every metric name.
const Namespace = "relay"

// Metrics are the collectors for a single relay server.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Uploads         *prometheus.CounterVec
	UploadBytes     prometheus.Counter
	Downloads       *prometheus.CounterVec
	DownloadBytes   prometheus.Counter
	InFlight        prometheus.Gauge
}

// New creates the relay's collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "requests_total",
			Help:      "Requests handled, by intent and status code.",
		}, []string{"intent", "code"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "request_duration_seconds",
			Help:      "Time from classification to the end of the response, by intent.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"intent"}),
		Uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "uploads_total",
			Help:      "Uploads attempted, by result.",
		}, []string{"result"}),
		UploadBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "upload_bytes_total",
			Help:      "Bytes stored by successful uploads.",
		}),
		Downloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "downloads_total",
			Help:      "Downloads attempted, by result.",
		}, []string{"result"}),
		DownloadBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "download_bytes_total",
			Help:      "Bytes sent by downloads, including aborted ones.",
		}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "transfers_in_flight",
			Help:      "Uploads and downloads currently streaming.",
		}),
	}
}
