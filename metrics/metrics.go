// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChatReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digitalindian_chat_replies_total",
			Help: "Chat replies by the rule that produced them",
		},
		[]string{"source"},
	)

	NotificationEmails = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digitalindian_notification_emails_total",
			Help: "Notification emails attempted during fan-out runs",
		},
		[]string{"kind", "status"},
	)

	NotificationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digitalindian_notification_runs_total",
			Help: "Fan-out runs by outcome",
		},
		[]string{"kind", "outcome"},
	)

	Subscriptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digitalindian_subscriptions_total",
			Help: "Newsletter subscription attempts by result",
		},
		[]string{"result"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "digitalindian_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"route", "method", "status"},
	)
)

var registerOnce sync.Once

// Init registers the collectors with the default Prometheus registry. It is safe
// to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ChatReplies)
		prometheus.MustRegister(NotificationEmails)
		prometheus.MustRegister(NotificationRuns)
		prometheus.MustRegister(Subscriptions)
		prometheus.MustRegister(RequestDuration)
	})
}

// ObserveRequest records one HTTP request.
func ObserveRequest(route, method, status string, d time.Duration) {
	RequestDuration.WithLabelValues(route, method, status).Observe(d.Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
