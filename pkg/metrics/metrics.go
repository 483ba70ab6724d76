package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPRequests counts handled HTTP requests by method, path and status
var HTTPRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "chamapesa_http_requests_total",
		Help: "Total number of HTTP requests handled",
	},
	[]string{"method", "path", "status"},
)

// HTTPLatency records request latency distribution per path
var HTTPLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "chamapesa_http_request_duration_seconds",
		Help:    "Latency in seconds to serve HTTP requests",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "path"},
)

// ContributionsPaid counts contributions settled through the pay endpoint
var ContributionsPaid = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "chamapesa_contributions_paid_total",
		Help: "Total number of contributions marked as paid",
	},
)

// ContributionsOverdue counts contributions flagged overdue by the background job
var ContributionsOverdue = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "chamapesa_contributions_overdue_total",
		Help: "Total number of contributions flagged overdue",
	},
)

// Database connection pool metrics
var (
	DBOpenConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chamapesa_db_open_connections",
			Help: "Number of open connections in the DB pool",
		},
		[]string{"db"},
	)

	DBIdleConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chamapesa_db_idle_connections",
			Help: "Number of idle connections in the DB pool",
		},
		[]string{"db"},
	)

	DBInUseConns = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chamapesa_db_in_use_connections",
			Help: "Number of in-use connections in the DB pool",
		},
		[]string{"db"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPLatency)
	prometheus.MustRegister(ContributionsPaid, ContributionsOverdue)
	prometheus.MustRegister(DBOpenConns, DBIdleConns, DBInUseConns)
}
