package routes

import (
	"context"
	"errors"
	"testing"

	"github.com/martinsuchenak/routekeeper/internal/ipv4"
	"github.com/martinsuchenak/routekeeper/internal/model"
	"github.com/martinsuchenak/routekeeper/internal/storage"
)

// fakeReconciler succeeds for every route whose name is not in fail and
// reports the states in active for status checks.
type fakeReconciler struct {
	fail    map[string]bool
	active  map[string]bool
	removed []string
}

func (f *fakeReconciler) result(route *model.Route) model.RouteResult {
	res := model.RouteResult{RouteID: route.ID, RouteName: route.Name, Success: !f.fail[route.Name], Message: "ok"}
	if !res.Success {
		res.Message = "route: writing to routing socket: error"
		res.Kind = model.FailureCommand
	}
	return res
}

func (f *fakeReconciler) AddRoute(ctx context.Context, route *model.Route) model.RouteResult {
	return f.result(route)
}

func (f *fakeReconciler) RemoveRoute(ctx context.Context, route *model.Route) model.RouteResult {
	f.removed = append(f.removed, route.Name)
	return f.result(route)
}

func (f *fakeReconciler) ApplyRoutes(ctx context.Context, routes []model.Route) []model.RouteResult {
	var out []model.RouteResult
	for i := range routes {
		out = append(out, f.AddRoute(ctx, &routes[i]))
	}
	return out
}

func (f *fakeReconciler) RemoveRoutes(ctx context.Context, routes []model.Route) []model.RouteResult {
	var out []model.RouteResult
	for i := range routes {
		out = append(out, f.RemoveRoute(ctx, &routes[i]))
	}
	return out
}

func (f *fakeReconciler) CheckRoutesStatus(ctx context.Context, routes []model.Route) map[string]bool {
	states := map[string]bool{}
	for _, r := range routes {
		if active, ok := f.active[r.Name]; ok {
			states[r.ID] = active
		}
	}
	return states
}

func newTestManager(t *testing.T, rec *fakeReconciler) *Manager {
	t.Helper()
	ss, err := storage.NewSQLiteStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { ss.Close() })
	return NewManager(ss, rec)
}

func route(name, ip string) *model.Route {
	return &model.Route{
		Name:       name,
		IPAddress:  ip,
		SubnetMask: "255.255.255.0",
		Gateway:    "192.168.1.1",
		Interface:  "en0",
	}
}

func mustCreate(t *testing.T, m *Manager, r *model.Route) *model.Route {
	t.Helper()
	if err := m.Create(r); err != nil {
		t.Fatalf("Create(%s): %v", r.Name, err)
	}
	return r
}

func TestCreateValidates(t *testing.T) {
	m := newTestManager(t, &fakeReconciler{})

	bad := route("", "10.0.0.0")
	bad.SubnetMask = "255.0.255.0"
	err := m.Create(bad)
	var verr *ipv4.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := verr.Fields["name"]; !ok {
		t.Errorf("missing name error: %v", verr)
	}
	if _, ok := verr.Fields["subnet_mask"]; !ok {
		t.Errorf("missing subnet_mask error: %v", verr)
	}

	good := route("office", "10.0.0.0")
	good.IsActive = true
	mustCreate(t, m, good)
	got, _ := m.Get(good.ID)
	if got.IsActive {
		t.Fatal("a new route must not be stored as active")
	}
}

func TestUpdateValidatesMergedRoute(t *testing.T) {
	m := newTestManager(t, &fakeReconciler{})
	r := mustCreate(t, m, route("office", "10.0.0.0"))

	badGateway := "192.168.1.300"
	if _, err := m.Update(r.ID, &model.RouteUpdate{Gateway: &badGateway}); err == nil {
		t.Fatal("expected validation error")
	}

	gw := "192.168.1.254"
	updated, err := m.Update(r.ID, &model.RouteUpdate{Gateway: &gw})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Gateway != gw || updated.Name != "office" {
		t.Fatalf("unexpected route: %+v", updated)
	}

	if _, err := m.Update("0190a1b2-0000-7000-8000-000000000000", &model.RouteUpdate{}); !errors.Is(err, storage.ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound, got %v", err)
	}
}

func TestApplyAndRemovePersistState(t *testing.T) {
	rec := &fakeReconciler{fail: map[string]bool{"broken": true}}
	m := newTestManager(t, rec)
	ok := mustCreate(t, m, route("office", "10.0.0.0"))
	broken := mustCreate(t, m, route("broken", "10.0.1.0"))
	ctx := context.Background()

	res, err := m.Apply(ctx, ok.ID)
	if err != nil || !res.Success {
		t.Fatalf("Apply = %+v, %v", res, err)
	}
	if got, _ := m.Get(ok.ID); !got.IsActive {
		t.Fatal("applied route should be active")
	}

	res, _ = m.Apply(ctx, broken.ID)
	if res.Success {
		t.Fatal("expected failure")
	}
	if got, _ := m.Get(broken.ID); got.IsActive {
		t.Fatal("failed apply must not mark route active")
	}

	res, _ = m.Remove(ctx, ok.ID)
	if !res.Success {
		t.Fatalf("Remove = %+v", res)
	}
	if got, _ := m.Get(ok.ID); got.IsActive {
		t.Fatal("removed route should be inactive")
	}
}

func TestApplyAllSummary(t *testing.T) {
	rec := &fakeReconciler{fail: map[string]bool{"bravo": true}}
	m := newTestManager(t, rec)
	mustCreate(t, m, route("charlie", "10.0.2.0"))
	mustCreate(t, m, route("alpha", "10.0.0.0"))
	mustCreate(t, m, route("bravo", "10.0.1.0"))

	summary, err := m.ApplyAll(context.Background())
	if err != nil {
		t.Fatalf("ApplyAll: %v", err)
	}
	if summary.Message() != "2 succeeded, 1 failed" {
		t.Fatalf("summary = %q", summary.Message())
	}
	order := []string{"alpha", "bravo", "charlie"}
	for i, name := range order {
		if summary.Results[i].RouteName != name {
			t.Errorf("results[%d] = %s, want %s", i, summary.Results[i].RouteName, name)
		}
	}

	active, _ := m.List(&model.RouteFilter{ActiveOnly: true})
	if len(active) != 2 {
		t.Fatalf("expected 2 active routes, got %d", len(active))
	}

	summary, _ = m.RemoveAll(context.Background())
	if summary.Succeeded != 2 || summary.Failed != 1 {
		t.Fatalf("RemoveAll summary = %+v", summary)
	}
}

func TestRefreshKeepsUnobservedState(t *testing.T) {
	rec := &fakeReconciler{}
	m := newTestManager(t, rec)
	up := mustCreate(t, m, route("up", "10.0.0.0"))
	unknown := mustCreate(t, m, route("unknown", "10.0.1.0"))
	ctx := context.Background()

	if _, err := m.Apply(ctx, unknown.ID); err != nil {
		t.Fatal(err)
	}
	rec.active = map[string]bool{"up": true}

	changed, err := m.Refresh(ctx)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if changed != 1 {
		t.Fatalf("changed = %d, want 1", changed)
	}
	if got, _ := m.Get(up.ID); !got.IsActive {
		t.Error("observed route should now be active")
	}
	if got, _ := m.Get(unknown.ID); !got.IsActive {
		t.Error("unobserved route must keep its cached state")
	}

	got, observed, err := m.Status(ctx, unknown.ID)
	if err != nil || observed || !got.IsActive {
		t.Fatalf("Status = %+v, %v, %v", got, observed, err)
	}
}

func TestDeleteRemovesActiveRouteFirst(t *testing.T) {
	rec := &fakeReconciler{fail: map[string]bool{"stuck": true}}
	m := newTestManager(t, rec)
	ctx := context.Background()

	idle := mustCreate(t, m, route("idle", "10.0.0.0"))
	removal, err := m.Delete(ctx, idle.ID)
	if err != nil || removal != nil {
		t.Fatalf("Delete(idle) = %+v, %v", removal, err)
	}
	if len(rec.removed) != 0 {
		t.Fatalf("inactive route should not be removed, got %v", rec.removed)
	}

	stuck := mustCreate(t, m, route("stuck", "10.0.1.0"))
	if err := m.store.SetRouteActive(stuck.ID, true); err != nil {
		t.Fatal(err)
	}
	removal, err = m.Delete(ctx, stuck.ID)
	if err != nil {
		t.Fatalf("Delete(stuck): %v", err)
	}
	if removal == nil || removal.Success {
		t.Fatalf("expected failed removal result, got %+v", removal)
	}
	if _, err := m.Get(stuck.ID); !errors.Is(err, storage.ErrRouteNotFound) {
		t.Fatal("route should be deleted even when removal fails")
	}
}

func TestRunRefreshStopsOnCancel(t *testing.T) {
	m := newTestManager(t, &fakeReconciler{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := m.RunRefresh(ctx, 1); err != nil {
		t.Fatalf("RunRefresh: %v", err)
	}
	if err := m.RunRefresh(context.Background(), 0); err != nil {
		t.Fatalf("RunRefresh(0): %v", err)
	}
}
