// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service collectors.
type Metrics struct {
	SessionsIssued  prometheus.Counter
	SessionsRevoked prometheus.Counter
	CheckIns        *prometheus.CounterVec
	QueueFailures   prometheus.Counter
	RequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SessionsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chompin",
			Name:      "sessions_issued_total",
			Help:      "Check-in sessions minted.",
		}),
		SessionsRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chompin",
			Name:      "sessions_revoked_total",
			Help:      "Check-in sessions revoked before expiry.",
		}),
		CheckIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chompin",
			Name:      "checkins_total",
			Help:      "Check-in submissions by outcome.",
		}, []string{"outcome"}),
		QueueFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chompin",
			Name:      "queue_publish_failures_total",
			Help:      "Check-in notifications that could not be queued.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chompin",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	if reg != nil {
		reg.MustRegister(m.SessionsIssued, m.SessionsRevoked, m.CheckIns, m.QueueFailures, m.RequestDuration)
	}
	return m
}

// GinMiddleware observes request latency keyed by the matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
