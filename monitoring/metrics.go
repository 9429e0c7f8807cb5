package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HttpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "status"},
	)

	HttpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_connections",
			Help: "Number of active connections",
		},
	)

	RelationToggles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relation_toggles_total",
			Help: "Total number of like and follow toggles by resulting action",
		},
		[]string{"action"},
	)

	NotificationSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_subscribers",
			Help: "Number of open notification streams",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HttpRequestsTotal,
		HttpRequestDuration,
		ActiveConnections,
		RelationToggles,
		NotificationSubscribers,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
