// Package metrics exposes Prometheus instrumentation for the upload
// lifecycle and the storage backends.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the registered upload metrics.
type Collector struct {
	uploadsTotal   *prometheus.CounterVec
	uploadBytes    prometheus.Histogram
	storeDuration  *prometheus.HistogramVec
	compensations  *prometheus.CounterVec
	deleteFailures *prometheus.CounterVec
	recordsDeleted prometheus.Counter
}

// NewCollector creates and registers all upload metrics on the default
// registry.
func NewCollector() *Collector {
	return &Collector{
		uploadsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "model_uploads_total",
				Help: "Model upload attempts by backend and outcome",
			},
			[]string{"backend", "outcome"},
		),
		uploadBytes: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "model_upload_bytes",
				Help:    "Size of accepted model uploads in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
			},
		),
		storeDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storage_store_duration_seconds",
				Help:    "Duration of storage backend writes",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"backend"},
		),
		compensations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storage_compensating_deletes_total",
				Help: "Storage deletes issued to roll back a failed upload",
			},
			[]string{"backend"},
		),
		deleteFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storage_delete_failures_total",
				Help: "Best-effort storage deletes that reported an error",
			},
			[]string{"backend"},
		),
		recordsDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "model_records_deleted_total",
				Help: "Model records removed by their owner",
			},
		),
	}
}

// ObserveUpload records one upload attempt.
func (c *Collector) ObserveUpload(backend, outcome string, size int64, storeTime time.Duration) {
	if c == nil {
		return
	}
	c.uploadsTotal.WithLabelValues(backend, outcome).Inc()
	if outcome == "success" {
		c.uploadBytes.Observe(float64(size))
	}
	if storeTime > 0 {
		c.storeDuration.WithLabelValues(backend).Observe(storeTime.Seconds())
	}
}

// ObserveCompensation counts a rollback delete after a failed record write.
func (c *Collector) ObserveCompensation(backend string) {
	if c == nil {
		return
	}
	c.compensations.WithLabelValues(backend).Inc()
}

// ObserveDeleteFailure counts a best-effort delete that errored.
func (c *Collector) ObserveDeleteFailure(backend string) {
	if c == nil {
		return
	}
	c.deleteFailures.WithLabelValues(backend).Inc()
}

// ObserveRecordDeleted counts a completed owner delete.
func (c *Collector) ObserveRecordDeleted() {
	if c == nil {
		return
	}
	c.recordsDeleted.Inc()
}
