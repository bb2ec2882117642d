package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/martinsuchenak/routekeeper/internal/model"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	ss, err := NewSQLiteStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	t.Cleanup(func() { ss.Close() })
	return ss
}

func officeRoute() *model.Route {
	return &model.Route{
		Name:       "office",
		IPAddress:  "192.168.1.0",
		SubnetMask: "255.255.255.0",
		Gateway:    "192.168.1.1",
		Interface:  "en0",
	}
}

func strPtr(s string) *string { return &s }

func TestCreateAndGetRoute(t *testing.T) {
	ss := newTestStorage(t)

	r := officeRoute()
	if err := ss.CreateRoute(r); err != nil {
		t.Fatalf("CreateRoute: %v", err)
	}
	if r.ID == "" {
		t.Fatal("expected an ID to be assigned")
	}
	if r.CreatedAt.IsZero() || r.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}

	got, err := ss.GetRoute(r.ID)
	if err != nil {
		t.Fatalf("GetRoute: %v", err)
	}
	if got.Name != r.Name || got.Gateway != r.Gateway || got.Interface != r.Interface || got.IsActive {
		t.Fatalf("unexpected route: %+v", got)
	}
}

func TestGetRouteNotFound(t *testing.T) {
	ss := newTestStorage(t)
	if _, err := ss.GetRoute("0190a1b2-0000-7000-8000-000000000000"); !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound, got %v", err)
	}
	if _, err := ss.GetRoute(""); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestCreateRouteRejectsMalformedID(t *testing.T) {
	ss := newTestStorage(t)
	r := officeRoute()
	r.ID = "not-a-uuid"
	if err := ss.CreateRoute(r); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestListRoutesSortedByName(t *testing.T) {
	ss := newTestStorage(t)
	for _, name := range []string{"zulu", "alpha", "Mike"} {
		r := officeRoute()
		r.Name = name
		if err := ss.CreateRoute(r); err != nil {
			t.Fatalf("CreateRoute(%s): %v", name, err)
		}
	}

	routes, err := ss.ListRoutes(nil)
	if err != nil {
		t.Fatalf("ListRoutes: %v", err)
	}
	want := []string{"alpha", "Mike", "zulu"}
	if len(routes) != len(want) {
		t.Fatalf("got %d routes, want %d", len(routes), len(want))
	}
	for i, name := range want {
		if routes[i].Name != name {
			t.Errorf("routes[%d] = %s, want %s", i, routes[i].Name, name)
		}
	}

	filtered, err := ss.ListRoutes(&model.RouteFilter{Name: "ulu"})
	if err != nil {
		t.Fatalf("ListRoutes filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Name != "zulu" {
		t.Fatalf("unexpected filtered routes: %+v", filtered)
	}
}

func TestListRoutesEmptyStore(t *testing.T) {
	ss := newTestStorage(t)
	routes, err := ss.ListRoutes(nil)
	if err != nil {
		t.Fatalf("ListRoutes: %v", err)
	}
	if routes == nil || len(routes) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", routes)
	}
}

func TestUpdateRoutePartial(t *testing.T) {
	ss := newTestStorage(t)
	r := officeRoute()
	if err := ss.CreateRoute(r); err != nil {
		t.Fatalf("CreateRoute: %v", err)
	}
	before := r.UpdatedAt

	time.Sleep(2 * time.Millisecond)
	updated, err := ss.UpdateRoute(r.ID, &model.RouteUpdate{Gateway: strPtr("192.168.1.254")})
	if err != nil {
		t.Fatalf("UpdateRoute: %v", err)
	}
	if updated.Gateway != "192.168.1.254" {
		t.Errorf("gateway = %s, want 192.168.1.254", updated.Gateway)
	}
	if updated.Name != "office" || updated.Interface != "en0" {
		t.Errorf("unsupplied fields changed: %+v", updated)
	}
	if !updated.UpdatedAt.After(before) {
		t.Errorf("updated_at did not move forward: %v -> %v", before, updated.UpdatedAt)
	}

	time.Sleep(2 * time.Millisecond)
	again, err := ss.UpdateRoute(r.ID, &model.RouteUpdate{})
	if err != nil {
		t.Fatalf("empty UpdateRoute: %v", err)
	}
	if !again.UpdatedAt.After(updated.UpdatedAt) {
		t.Errorf("empty update should still bump updated_at")
	}

	if _, err := ss.UpdateRoute("0190a1b2-0000-7000-8000-000000000000", &model.RouteUpdate{}); !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound, got %v", err)
	}
}

func TestDuplicateThenDelete(t *testing.T) {
	ss := newTestStorage(t)
	src := officeRoute()
	if err := ss.CreateRoute(src); err != nil {
		t.Fatalf("CreateRoute: %v", err)
	}

	dup, err := ss.DuplicateRoute(src.ID)
	if err != nil {
		t.Fatalf("DuplicateRoute: %v", err)
	}
	if dup.ID == src.ID {
		t.Fatal("duplicate must get a new ID")
	}
	if dup.Name != "office Copy" {
		t.Errorf("duplicate name = %q", dup.Name)
	}
	if dup.IPAddress != src.IPAddress || dup.SubnetMask != src.SubnetMask || dup.Gateway != src.Gateway || dup.Interface != src.Interface {
		t.Errorf("duplicate fields differ: %+v vs %+v", dup, src)
	}

	if err := ss.DeleteRoute(src.ID); err != nil {
		t.Fatalf("DeleteRoute: %v", err)
	}
	if _, err := ss.GetRoute(dup.ID); err != nil {
		t.Fatalf("duplicate should survive deletion of the original: %v", err)
	}
	if err := ss.DeleteRoute(src.ID); !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound on second delete, got %v", err)
	}
}

func TestSetRouteActive(t *testing.T) {
	ss := newTestStorage(t)
	r := officeRoute()
	if err := ss.CreateRoute(r); err != nil {
		t.Fatalf("CreateRoute: %v", err)
	}

	if err := ss.SetRouteActive(r.ID, true); err != nil {
		t.Fatalf("SetRouteActive: %v", err)
	}
	got, _ := ss.GetRoute(r.ID)
	if !got.IsActive {
		t.Fatal("expected route to be active")
	}

	active, err := ss.ListRoutes(&model.RouteFilter{ActiveOnly: true})
	if err != nil || len(active) != 1 {
		t.Fatalf("ListRoutes(ActiveOnly) = %v, %v", active, err)
	}

	if err := ss.SetRouteActive("0190a1b2-0000-7000-8000-000000000000", true); !errors.Is(err, ErrRouteNotFound) {
		t.Fatalf("expected ErrRouteNotFound, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ss, err := NewSQLiteStorage(dir)
	if err != nil {
		t.Fatalf("NewSQLiteStorage: %v", err)
	}
	r := officeRoute()
	if err := ss.CreateRoute(r); err != nil {
		t.Fatalf("CreateRoute: %v", err)
	}
	ss.Close()

	reopened, err := NewSQLiteStorage(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.GetRoute(r.ID); err != nil {
		t.Fatalf("route lost after reopen: %v", err)
	}
}

func TestCorruptDatabaseIsRecreated(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, databaseFile), []byte("definitely not sqlite, just garbage bytes that fill a header"), 0o644); err != nil {
		t.Fatal(err)
	}

	ss, err := NewSQLiteStorage(dir)
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	defer ss.Close()

	routes, err := ss.ListRoutes(nil)
	if err != nil {
		t.Fatalf("ListRoutes: %v", err)
	}
	if len(routes) != 0 {
		t.Fatalf("expected empty store, got %d routes", len(routes))
	}
}
