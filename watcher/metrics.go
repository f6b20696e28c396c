package watcher

import "github.com/prometheus/client_golang/prometheus"

var (
	metricUploads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "binsize_watcher_uploads_total",
			Help: "Number of archives uploaded",
		},
	)
	metricUploadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "binsize_watcher_upload_bytes_total",
			Help: "Number of bytes uploaded successfully",
		},
	)
	metricUploadsFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "binsize_watcher_uploads_failed_total",
			Help: "Number of failed archive upload attempts",
		},
	)
	metricUploadsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "binsize_watcher_uploads_rejected_total",
			Help: "Number of archives rejected by validation before upload",
		},
	)
	metricLastUploadTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "binsize_watcher_last_upload_unix_seconds",
			Help: "UNIX timestamp of last successful upload",
		},
	)
	metricListCalls = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "binsize_watcher_storage_list_calls_total",
			Help: "Number of storage list calls",
		},
	)
)

func init() {
	prometheus.MustRegister(metricUploads)
	prometheus.MustRegister(metricUploadBytes)
	prometheus.MustRegister(metricUploadsFailed)
	prometheus.MustRegister(metricUploadsRejected)
	prometheus.MustRegister(metricLastUploadTimestamp)
	prometheus.MustRegister(metricListCalls)
}
