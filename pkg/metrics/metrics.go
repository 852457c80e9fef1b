package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Business metrics
	UsersRegistered     *prometheus.CounterVec
	LoginAttempts       *prometheus.CounterVec
	LinksCreated        prometheus.Counter
	ClicksTracked       prometheus.Counter
	ConversionsRecorded prometheus.Counter
	ConversionsReviewed *prometheus.CounterVec
	PayoutsRequested    prometheus.Counter
	PayoutsSettled      *prometheus.CounterVec
	PasswordResets      *prometheus.CounterVec
	PendingPayouts      prometheus.Gauge

	// Database metrics
	DBConnections prometheus.Gauge
}

// New creates a new Metrics instance with all metrics registered on reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in
// tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
			},
			[]string{"method", "path"},
		),

		// Business metrics
		UsersRegistered: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "users_registered_total",
				Help: "Total number of accounts registered",
			},
			[]string{"role"}, // company, partner
		),
		LoginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "login_attempts_total",
				Help: "Total number of login attempts",
			},
			[]string{"status"}, // success, failed
		),
		LinksCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "affiliate_links_created_total",
			Help: "Total number of tracking links created",
		}),
		ClicksTracked: factory.NewCounter(prometheus.CounterOpts{
			Name: "affiliate_clicks_total",
			Help: "Total number of tracked clicks",
		}),
		ConversionsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "affiliate_conversions_total",
			Help: "Total number of recorded conversions",
		}),
		ConversionsReviewed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "affiliate_conversions_reviewed_total",
				Help: "Total number of reviewed conversions",
			},
			[]string{"status"}, // approved, rejected
		),
		PayoutsRequested: factory.NewCounter(prometheus.CounterOpts{
			Name: "payouts_requested_total",
			Help: "Total number of payout requests",
		}),
		PayoutsSettled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payouts_settled_total",
				Help: "Total number of settled payouts",
			},
			[]string{"status"}, // completed, failed
		),
		PasswordResets: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "password_resets_total",
				Help: "Total number of password reset operations",
			},
			[]string{"stage"}, // requested, confirmed
		),
		PendingPayouts: factory.NewGauge(prometheus.GaugeOpts{
			Name: "payouts_pending",
			Help: "Number of payouts awaiting settlement",
		}),

		// Database metrics
		DBConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		}),
	}
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)
			if err != nil {
				// Let the error handler write the response so the status is final
				c.Error(err)
			}

			path := c.Path() // route pattern, e.g. /track/:code
			status := strconv.Itoa(c.Response().Status)
			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, status).Observe(time.Since(start).Seconds())
			m.HTTPResponseSize.WithLabelValues(req.Method, path).Observe(float64(c.Response().Size))

			return nil
		}
	}
}

// RecordUserRegistered increments users registered counter
func (m *Metrics) RecordUserRegistered(role string) {
	m.UsersRegistered.WithLabelValues(role).Inc()
}

// RecordLoginAttempt increments login attempts counter
func (m *Metrics) RecordLoginAttempt(success bool) {
	status := "failed"
	if success {
		status = "success"
	}
	m.LoginAttempts.WithLabelValues(status).Inc()
}

// RecordLinkCreated counts newly created tracking links
func (m *Metrics) RecordLinkCreated() {
	m.LinksCreated.Inc()
}

// RecordClick counts a tracked click
func (m *Metrics) RecordClick() {
	m.ClicksTracked.Inc()
}

// RecordConversion counts a recorded conversion
func (m *Metrics) RecordConversion() {
	m.ConversionsRecorded.Inc()
}

// RecordConversionReviewed counts an approval or rejection
func (m *Metrics) RecordConversionReviewed(status string) {
	m.ConversionsReviewed.WithLabelValues(status).Inc()
}

// RecordPayoutRequested counts a payout request
func (m *Metrics) RecordPayoutRequested() {
	m.PayoutsRequested.Inc()
}

// RecordSettlement adds the outcome of a settlement run
func (m *Metrics) RecordSettlement(completed, failed int) {
	m.PayoutsSettled.WithLabelValues("completed").Add(float64(completed))
	m.PayoutsSettled.WithLabelValues("failed").Add(float64(failed))
}

// RecordPasswordReset counts a reset stage
func (m *Metrics) RecordPasswordReset(stage string) {
	m.PasswordResets.WithLabelValues(stage).Inc()
}

// SetPendingPayouts updates the pending payouts gauge
func (m *Metrics) SetPendingPayouts(n int) {
	m.PendingPayouts.Set(float64(n))
}

// UpdateDBConnections updates active database connections gauge
func (m *Metrics) UpdateDBConnections(count float64) {
	m.DBConnections.Set(count)
}
