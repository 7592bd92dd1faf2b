package vectorstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records vector store operations as native Prometheus collectors.
type Metrics struct {
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	records  *prometheus.GaugeVec
}

// NewMetrics registers the vector store collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "dartrag",
				Subsystem: "vectorstore",
				Name:      "operation_duration_seconds",
				Help:      "Duration of vector store operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"backend", "operation"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dartrag",
				Subsystem: "vectorstore",
				Name:      "errors_total",
				Help:      "Total number of failed vector store operations",
			},
			[]string{"backend", "operation"},
		),
		records: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "dartrag",
				Subsystem: "vectorstore",
				Name:      "records",
				Help:      "Records in the collection as of the last count",
			},
			[]string{"backend", "collection"},
		),
	}
}

// observe records one operation. Safe on a nil receiver.
func (m *Metrics) observe(backend, operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(backend, operation).Observe(time.Since(started).Seconds())
	if err != nil {
		m.errors.WithLabelValues(backend, operation).Inc()
	}
}

func (m *Metrics) setRecords(backend, collection string, n int) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(backend, collection).Set(float64(n))
}
