package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values for SubmissionCounter.
const (
	SubmissionAccepted = "accepted"
	SubmissionRejected = "rejected"
)

// Label values for EnqueueCounter.
const (
	EnqueueOK      = "ok"
	EnqueueError   = "error"
	EnqueueRetry   = "retry"
	EnqueueFailed  = "failed"
	EnqueueDropped = "dropped"
)

var (
	// RequestCounter counts HTTP requests by route, method and status.
	RequestCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "primary_server_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"path", "method", "status"})

	// RequestDuration measures the duration of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "primary_server_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path", "method"})

	// SubmissionCounter counts job submissions by outcome at the endpoint.
	SubmissionCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "primary_server_submissions_total",
		Help: "Total number of job submissions received.",
	}, []string{"result"})

	// EnqueueCounter counts push attempts onto the work queue.
	EnqueueCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "primary_server_enqueue_total",
		Help: "Total number of work queue push attempts by result.",
	}, []string{"result"})

	// DispatchBufferDepth is the number of submissions waiting in the dispatcher.
	DispatchBufferDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "primary_server_dispatch_buffer_depth",
		Help: "Submissions buffered in-process and not yet pushed.",
	})
)

func IncSubmission(result string) {
	SubmissionCounter.WithLabelValues(result).Inc()
}

func IncEnqueue(result string) {
	EnqueueCounter.WithLabelValues(result).Inc()
}

// ObserveRequest records one finished HTTP request.
func ObserveRequest(path, method, status string, seconds float64) {
	RequestCounter.WithLabelValues(path, method, status).Inc()
	RequestDuration.WithLabelValues(path, method).Observe(seconds)
}

// Handler exposes the default registry in the prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
