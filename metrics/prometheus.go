package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Skryldev/userservice/db"
)

// Metrics owns every collector the service exports. Collectors live on the
// registerer passed to New so tests can use a private registry.
type Metrics struct {
	totalRequests   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	totalErrors     *prometheus.CounterVec

	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		totalRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "code"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		totalErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_errors_total",
				Help: "Total number of HTTP responses with 5xx codes",
			},
			[]string{"method", "route", "code"},
		),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "db_queries_total",
				Help: "Total number of SQL statements by leading keyword and outcome",
			},
			[]string{"op", "success"},
		),
		queryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "SQL statement duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
	reg.MustRegister(m.totalRequests, m.requestDuration, m.totalErrors, m.queries, m.queryDuration)
	return m
}

// Middleware records request count, latency and 5xx responses per route
// template, so /users/1 and /users/2 share one series.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		code := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				code = fe.Code
			} else {
				code = fiber.StatusInternalServerError
			}
		}

		route := c.Route().Path
		method := c.Method()
		codeStr := strconv.Itoa(code)
		m.totalRequests.WithLabelValues(method, route, codeStr).Inc()
		m.requestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		if code >= 500 {
			m.totalErrors.WithLabelValues(method, route, codeStr).Inc()
		}
		return err
	}
}

// RecordQuery implements db.MetricsCollector.
func (m *Metrics) RecordQuery(query string, d time.Duration, success bool) {
	op := queryOp(query)
	m.queries.WithLabelValues(op, strconv.FormatBool(success)).Inc()
	m.queryDuration.WithLabelValues(op).Observe(d.Seconds())
}

// queryOp returns the lower-cased leading SQL keyword, which keeps label
// cardinality bounded regardless of the statement text.
func queryOp(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}

var _ db.MetricsCollector = (*Metrics)(nil)
