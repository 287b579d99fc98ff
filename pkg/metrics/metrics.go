package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry is the process-wide collector registry served on /metrics
var Registry = prometheus.NewRegistry()

var (
	// CodeVerifications counts verify outcomes by flow (registration, password_reset)
	// and outcome (accepted, invalid, expired, mismatch, locked).
	CodeVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "giveora",
		Subsystem: "auth",
		Name:      "code_verifications_total",
		Help:      "One-time code verification attempts by flow and outcome.",
	}, []string{"flow", "outcome"})

	CodesIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "giveora",
		Subsystem: "auth",
		Name:      "codes_issued_total",
		Help:      "One-time codes generated by flow and reason.",
	}, []string{"flow", "reason"})

	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "giveora",
		Subsystem: "auth",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by a rate limiter.",
	}, []string{"action"})

	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "giveora",
		Subsystem: "notification",
		Name:      "deliveries_total",
		Help:      "Notification delivery attempts by template and status.",
	}, []string{"template", "status"})

	NotificationQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "giveora",
		Subsystem: "notification",
		Name:      "queue_depth",
		Help:      "Messages waiting in the dispatch queue.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		CodeVerifications,
		CodesIssued,
		RateLimited,
		Notifications,
		NotificationQueueDepth,
	)
}
