package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal counts requests by route, method and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postwall_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"route", "method", "status"})

	// HTTPRequestDuration records request latency by route and method.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "postwall_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	// LikeTogglesTotal counts committed like toggles by resulting action.
	LikeTogglesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "postwall_like_toggles_total",
		Help: "Total number of committed like toggles",
	}, []string{"action"})

	// OrphansSweptTotal counts stored images removed by the orphan sweeper.
	OrphansSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "postwall_orphans_swept_total",
		Help: "Total number of unreferenced stored images removed",
	})
)
