package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/martinsuchenak/routekeeper/internal/model"
	"github.com/martinsuchenak/routekeeper/internal/reconciler"
)

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	c, err := NewCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewCollector: %v", err)
	}
	return c
}

func TestCommandExecuted(t *testing.T) {
	c := newTestCollector(t)
	c.CommandExecuted(model.FailureNone, 20*time.Millisecond)
	c.CommandExecuted(model.FailureNone, 30*time.Millisecond)
	c.CommandExecuted(model.FailureTimeout, 30*time.Second)

	if got := testutil.ToFloat64(c.Commands.WithLabelValues("ok")); got != 2 {
		t.Fatalf("ok commands = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.Commands.WithLabelValues("timeout")); got != 1 {
		t.Fatalf("timeout commands = %v, want 1", got)
	}
}

func TestAuthorizationAndRouteOps(t *testing.T) {
	c := newTestCollector(t)
	c.AuthorizationAccepted()
	c.AuthorizationRejected("signing identity mismatch")
	c.AuthorizationRejected("invalid pid 0")
	c.RouteOperation(reconciler.OpAdd, true)
	c.RouteOperation(reconciler.OpAdd, false)

	if got := testutil.ToFloat64(c.AuthDecisions.WithLabelValues("rejected")); got != 2 {
		t.Fatalf("rejected = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.RouteOperations.WithLabelValues("add", "false")); got != 1 {
		t.Fatalf("failed adds = %v, want 1", got)
	}
}

func TestRegisterTwiceReusesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewCollector(reg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewCollector(reg)
	if err != nil {
		t.Fatalf("second NewCollector: %v", err)
	}
	a.RouteOperation("check", true)
	if got := testutil.ToFloat64(b.RouteOperations.WithLabelValues("check", "true")); got != 1 {
		t.Fatalf("collectors not shared: %v", got)
	}
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.CommandExecuted(model.FailureNone, time.Second)
	c.AuthorizationAccepted()
	c.AuthorizationRejected("x")
	c.RouteOperation("add", true)
}

func TestMiddlewareAndHandler(t *testing.T) {
	c := newTestCollector(t)
	h := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/routes/x", nil))

	if got := testutil.ToFloat64(c.APIRequests.WithLabelValues("GET", "404")); got != 1 {
		t.Fatalf("api requests = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "routekeeper_api_requests_total") {
		t.Fatalf("metrics output missing counter:\n%s", body)
	}
}
