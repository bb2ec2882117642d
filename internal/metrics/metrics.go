// Package metrics holds the Prometheus collectors for the helper and the
// agent. The same Collector type implements the observer interfaces of the
// helper server, the authorizer and the reconciler.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/martinsuchenak/routekeeper/internal/model"
)

type Collector struct {
	gatherer prometheus.Gatherer

	Commands         *prometheus.CounterVec
	CommandDurations *prometheus.HistogramVec
	AuthDecisions    *prometheus.CounterVec
	RouteOperations  *prometheus.CounterVec
	APIRequests      *prometheus.CounterVec
}

// NewCollector registers all metrics against reg, defaulting to the global
// registry when nil. Registering twice returns the existing collectors.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	commands, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "routekeeper_helper_commands_total",
		Help: "Commands executed by the privileged helper, labeled by failure kind (ok when none).",
	}, []string{"kind"}), "routekeeper_helper_commands_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "routekeeper_helper_command_duration_seconds",
		Help:    "Time the privileged helper spent executing a command.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"kind"}), "routekeeper_helper_command_duration_seconds")
	if err != nil {
		return nil, err
	}

	auth, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "routekeeper_helper_authorizations_total",
		Help: "Connection authorization decisions, labeled by result.",
	}, []string{"result"}), "routekeeper_helper_authorizations_total")
	if err != nil {
		return nil, err
	}

	ops, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "routekeeper_route_operations_total",
		Help: "Route add, remove and status operations, labeled by outcome.",
	}, []string{"op", "success"}), "routekeeper_route_operations_total")
	if err != nil {
		return nil, err
	}

	api, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "routekeeper_api_requests_total",
		Help: "Agent API requests, labeled by method and status code.",
	}, []string{"method", "code"}), "routekeeper_api_requests_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:         gatherer,
		Commands:         commands,
		CommandDurations: durations,
		AuthDecisions:    auth,
		RouteOperations:  ops,
		APIRequests:      api,
	}, nil
}

// Handler exposes the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}

func kindLabel(kind model.FailureKind) string {
	if kind == model.FailureNone {
		return "ok"
	}
	return string(kind)
}

// CommandExecuted records one helper command.
func (c *Collector) CommandExecuted(kind model.FailureKind, elapsed time.Duration) {
	if c == nil {
		return
	}
	label := kindLabel(kind)
	c.Commands.WithLabelValues(label).Inc()
	c.CommandDurations.WithLabelValues(label).Observe(elapsed.Seconds())
}

func (c *Collector) AuthorizationAccepted() {
	if c == nil {
		return
	}
	c.AuthDecisions.WithLabelValues("accepted").Inc()
}

// AuthorizationRejected counts a rejection. The reason is logged by the
// authorizer and kept out of the labels to bound cardinality.
func (c *Collector) AuthorizationRejected(reason string) {
	if c == nil {
		return
	}
	c.AuthDecisions.WithLabelValues("rejected").Inc()
}

func (c *Collector) RouteOperation(op string, success bool) {
	if c == nil {
		return
	}
	c.RouteOperations.WithLabelValues(op, strconv.FormatBool(success)).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware counts every request passing through next.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		c.APIRequests.WithLabelValues(r.Method, strconv.Itoa(rec.code)).Inc()
	})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
