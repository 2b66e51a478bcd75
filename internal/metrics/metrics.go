// Package metrics exposes the API's prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/m1z23r/drift/pkg/drift"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth event labels.
const (
	EventSignUp       = "sign_up"
	EventSignIn       = "sign_in"
	EventSignInFailed = "sign_in_failed"
	EventSignOut      = "sign_out"
	EventRefresh      = "refresh"
)

type Collector struct {
	errors         *prometheus.CounterVec
	authEvents     *prometheus.CounterVec
	accessDenied   *prometheus.CounterVec
	sseConnections prometheus.Gauge
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobboard_errors_total",
			Help: "Classified errors by kind.",
		}, []string{"kind"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobboard_auth_events_total",
			Help: "Authentication events by type.",
		}, []string{"event"}),
		accessDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobboard_access_denied_total",
			Help: "Requests turned away by the access gate, by requirement and reason.",
		}, []string{"requirement", "reason"}),
		sseConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "jobboard_sse_connections",
			Help: "Open session-change streams.",
		}),
	}

	reg.MustRegister(c.errors, c.authEvents, c.accessDenied, c.sseConnections)
	return c
}

func (c *Collector) RecordError(kind string) {
	c.errors.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordAuthEvent(event string) {
	c.authEvents.WithLabelValues(event).Inc()
}

func (c *Collector) RecordAccessDenied(requirement, reason string) {
	c.accessDenied.WithLabelValues(requirement, reason).Inc()
}

func (c *Collector) SSEConnected() {
	c.sseConnections.Inc()
}

func (c *Collector) SSEDisconnected() {
	c.sseConnections.Dec()
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Route adapts Handler to a drift route.
func Route(gatherer prometheus.Gatherer) drift.HandlerFunc {
	h := Handler(gatherer)
	return func(c *drift.Context) {
		h.ServeHTTP(c.Response, c.Request)
		c.Abort()
	}
}
