// Package metrics provides Prometheus metrics for the webdump server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webdump_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webdump_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "webdump_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)

	// Scan metrics
	scansTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webdump_scans_total",
			Help: "Total number of directory scans",
		},
	)

	scanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webdump_scan_duration_seconds",
			Help:    "Directory scan duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	scanFiles = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webdump_scan_files",
			Help:    "Number of files discovered per scan",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)

	scanSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webdump_scan_skipped_total",
			Help: "Total entries skipped during scans (broken links, specials, stat errors)",
		},
	)

	// Page build metrics
	pageBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webdump_page_builds_total",
			Help: "Total number of page builds",
		},
		[]string{"status"},
	)

	pageBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webdump_page_build_duration_seconds",
			Help:    "Page build duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	pageBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webdump_page_bytes",
			Help:    "Size of built pages in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	// Classification metrics
	classificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webdump_classifications_total",
			Help: "Total content classifications by kind",
		},
		[]string{"kind"},
	)

	// Preview metrics
	previewTruncationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webdump_preview_truncations_total",
			Help: "Total text previews truncated at the size cap",
		},
	)

	// Raw file serving metrics
	fileBytesServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webdump_file_bytes_served_total",
			Help: "Total bytes served from the raw file endpoint",
		},
	)

	filesServedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webdump_files_served_total",
			Help: "Total raw file downloads",
		},
		[]string{"status"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordScan records a completed directory scan.
func RecordScan(files int, duration time.Duration) {
	scansTotal.Inc()
	scanDuration.Observe(duration.Seconds())
	scanFiles.Observe(float64(files))
}

// RecordScanSkip records an entry skipped during a scan.
func RecordScanSkip() {
	scanSkippedTotal.Inc()
}

// RecordPageBuild records a page build.
func RecordPageBuild(bytes int, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	pageBuildsTotal.WithLabelValues(status).Inc()
	if success {
		pageBuildDuration.Observe(duration.Seconds())
		pageBytes.Observe(float64(bytes))
	}
}

// RecordClassification records a content classification by kind.
func RecordClassification(kind string) {
	classificationsTotal.WithLabelValues(kind).Inc()
}

// RecordPreviewTruncation records a text preview cut off at the size cap.
func RecordPreviewTruncation() {
	previewTruncationsTotal.Inc()
}

// RecordFileServed records a raw file download.
func RecordFileServed(bytes int64, success bool) {
	fileBytesServed.Add(float64(bytes))
	status := "success"
	if !success {
		status = "error"
	}
	filesServedTotal.WithLabelValues(status).Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics.
// The matched route pattern is used as the path label so that raw file
// paths do not blow up label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		httpRequestsInFlight.Dec()
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		RecordHTTPRequest(r.Method, path, rw.statusCode, time.Since(start))
	})
}
