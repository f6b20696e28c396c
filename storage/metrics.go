package storage

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "binsize_storage_operations_total",
			Help: "Number of storage operations by result",
		},
		[]string{"operation", "result"},
	)
	metricOperationSeconds = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name: "binsize_storage_operation_duration_seconds",
			Help: "Duration of storage operations",
		},
		[]string{"operation"},
	)
)

func init() {
	prometheus.MustRegister(metricOperations)
	prometheus.MustRegister(metricOperationSeconds)
}

func observe(operation string, t0 time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metricOperations.WithLabelValues(operation, result).Inc()
	metricOperationSeconds.WithLabelValues(operation).Observe(time.Since(t0).Seconds())
}
