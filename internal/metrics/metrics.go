// Package metrics exposes client-side Prometheus metrics: API calls by
// outcome, latency, session transitions and route guard decisions.
package metrics

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once     sync.Once
	registry *Registry
)

// Outcome labels for API requests.
const (
	OutcomeOK           = "ok"
	OutcomeDomain       = "domain_error"
	OutcomeUnauthorized = "unauthorized"
	OutcomeHTTP         = "http_error"
	OutcomeNetwork      = "network_error"
	OutcomeProtocol     = "protocol_error"
)

// Registry holds all console metrics.
type Registry struct {
	reg *prometheus.Registry

	APIRequests        *prometheus.CounterVec
	APILatency         *prometheus.HistogramVec
	SessionTransitions *prometheus.CounterVec
	RouteDecisions     *prometheus.CounterVec
}

// Get returns the process-wide metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = New()
	})
	return registry
}

// New creates an independent registry. Tests use this so counters start at zero.
func New() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	r := &Registry{reg: reg}

	r.APIRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "yuictl_api_requests_total",
		Help: "Panel API requests by method, endpoint and outcome",
	}, []string{"method", "endpoint", "outcome"})

	r.APILatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yuictl_api_request_duration_seconds",
		Help:    "Panel API request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	r.SessionTransitions = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "yuictl_session_transitions_total",
		Help: "Session state transitions",
	}, []string{"transition"})

	r.RouteDecisions = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "yuictl_route_decisions_total",
		Help: "Route guard decisions by outcome and reason",
	}, []string{"outcome", "reason"})

	return r
}

// ObserveRequest records one finished API call.
func (r *Registry) ObserveRequest(method, path, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	endpoint := Endpoint(path)
	r.APIRequests.WithLabelValues(method, endpoint, outcome).Inc()
	r.APILatency.WithLabelValues(method, endpoint).Observe(d.Seconds())
}

// Transition records a session transition ("login", "logout", ...).
func (r *Registry) Transition(name string) {
	if r == nil {
		return
	}
	r.SessionTransitions.WithLabelValues(name).Inc()
}

// Decision records a route guard decision.
func (r *Registry) Decision(outcome, reason string) {
	if r == nil {
		return
	}
	r.RouteDecisions.WithLabelValues(outcome, reason).Inc()
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns an HTTP handler serving the registry in exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Endpoint collapses numeric path segments so label cardinality stays
// bounded: "clients/42/links" becomes "clients/:id/links".
func Endpoint(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p != "" && isDigits(p) {
			parts[i] = ":id"
		}
	}
	return strings.Join(parts, "/")
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
