package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VisitsRecorded counts stored visits by kind (regular or orphan) and bot flag.
	VisitsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_visits_recorded_total",
			Help: "Total number of visits recorded",
		},
		[]string{"kind", "potential_bot"},
	)

	VisitRecordErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shortlink_visit_record_errors_total",
			Help: "Total number of visits that could not be stored",
		},
	)

	Redirects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_redirects_total",
			Help: "Total number of redirect requests by outcome",
		},
		[]string{"outcome"},
	)

	LinksCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shortlink_links_created_total",
			Help: "Total number of short links created",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "shortlink_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
