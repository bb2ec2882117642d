// Package routes ties the route store to the reconciler: it validates
// definitions before they are saved and persists the observed state after
// every apply, remove and refresh.
package routes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/martinsuchenak/routekeeper/internal/ipv4"
	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/martinsuchenak/routekeeper/internal/model"
	"github.com/martinsuchenak/routekeeper/internal/storage"
)

// Reconciler is the subset of reconciler.Reconciler the manager drives.
type Reconciler interface {
	AddRoute(ctx context.Context, route *model.Route) model.RouteResult
	RemoveRoute(ctx context.Context, route *model.Route) model.RouteResult
	ApplyRoutes(ctx context.Context, routes []model.Route) []model.RouteResult
	RemoveRoutes(ctx context.Context, routes []model.Route) []model.RouteResult
	CheckRoutesStatus(ctx context.Context, routes []model.Route) map[string]bool
}

// Manager owns all route lifecycle operations. Batch operations are
// serialized so two of them never interleave commands on the helper.
type Manager struct {
	store storage.Storage
	rec   Reconciler
	batch sync.Mutex
}

func NewManager(store storage.Storage, rec Reconciler) *Manager {
	return &Manager{store: store, rec: rec}
}

func (m *Manager) List(filter *model.RouteFilter) ([]model.Route, error) {
	return m.store.ListRoutes(filter)
}

func (m *Manager) Get(id string) (*model.Route, error) {
	return m.store.GetRoute(id)
}

// Create validates and stores a new route. A new route is never active until
// it has been applied or observed.
func (m *Manager) Create(route *model.Route) error {
	if err := ipv4.ValidateRoute(route); err != nil {
		return err
	}
	route.IsActive = false
	if err := m.store.CreateRoute(route); err != nil {
		return fmt.Errorf("creating route: %w", err)
	}
	log.Info("Route created", "id", route.ID, "name", route.Name)
	return nil
}

// Update applies a partial update after validating the merged result.
func (m *Manager) Update(id string, update *model.RouteUpdate) (*model.Route, error) {
	current, err := m.store.GetRoute(id)
	if err != nil {
		return nil, err
	}
	merged := *current
	update.Apply(&merged)
	if err := ipv4.ValidateRoute(&merged); err != nil {
		return nil, err
	}

	route, err := m.store.UpdateRoute(id, update)
	if err != nil {
		return nil, err
	}
	log.Info("Route updated", "id", id, "name", route.Name)
	return route, nil
}

func (m *Manager) Duplicate(id string) (*model.Route, error) {
	dup, err := m.store.DuplicateRoute(id)
	if err != nil {
		return nil, err
	}
	log.Info("Route duplicated", "source", id, "id", dup.ID, "name", dup.Name)
	return dup, nil
}

// Delete removes the definition. An active route is first taken out of the
// routing table; that removal is best effort and its result is returned for
// display, but the record is deleted either way.
func (m *Manager) Delete(ctx context.Context, id string) (*model.RouteResult, error) {
	route, err := m.store.GetRoute(id)
	if err != nil {
		return nil, err
	}

	var removal *model.RouteResult
	if route.IsActive {
		res := m.rec.RemoveRoute(ctx, route)
		if !res.Success {
			log.Warn("Deleting route that could not be removed from the routing table", "id", id, "message", res.Message)
		}
		removal = &res
	}

	if err := m.store.DeleteRoute(id); err != nil {
		return removal, err
	}
	log.Info("Route deleted", "id", id, "name", route.Name)
	return removal, nil
}

// Apply adds one route to the routing table.
func (m *Manager) Apply(ctx context.Context, id string) (model.RouteResult, error) {
	route, err := m.store.GetRoute(id)
	if err != nil {
		return model.RouteResult{}, err
	}
	res := m.rec.AddRoute(ctx, route)
	if res.Success {
		m.persistActive(route.ID, true)
	}
	return res, nil
}

// Remove deletes one route from the routing table.
func (m *Manager) Remove(ctx context.Context, id string) (model.RouteResult, error) {
	route, err := m.store.GetRoute(id)
	if err != nil {
		return model.RouteResult{}, err
	}
	res := m.rec.RemoveRoute(ctx, route)
	if res.Success {
		m.persistActive(route.ID, false)
	}
	return res, nil
}

// Status probes one route and persists what it saw. observed is false when
// the helper could not be asked, in which case the stored value is returned.
func (m *Manager) Status(ctx context.Context, id string) (route *model.Route, observed bool, err error) {
	route, err = m.store.GetRoute(id)
	if err != nil {
		return nil, false, err
	}
	states := m.rec.CheckRoutesStatus(ctx, []model.Route{*route})
	active, ok := states[route.ID]
	if !ok {
		return route, false, nil
	}
	if active != route.IsActive {
		m.persistActive(route.ID, active)
		route.IsActive = active
	}
	return route, true, nil
}

// ApplyAll adds every stored route in name order.
func (m *Manager) ApplyAll(ctx context.Context) (model.BatchSummary, error) {
	m.batch.Lock()
	defer m.batch.Unlock()

	all, err := m.store.ListRoutes(nil)
	if err != nil {
		return model.BatchSummary{}, err
	}
	results := m.rec.ApplyRoutes(ctx, all)
	for _, res := range results {
		if res.Success {
			m.persistActive(res.RouteID, true)
		}
	}
	return model.Summarize(results), nil
}

// RemoveAll deletes every stored route from the routing table in name order.
func (m *Manager) RemoveAll(ctx context.Context) (model.BatchSummary, error) {
	m.batch.Lock()
	defer m.batch.Unlock()

	all, err := m.store.ListRoutes(nil)
	if err != nil {
		return model.BatchSummary{}, err
	}
	results := m.rec.RemoveRoutes(ctx, all)
	for _, res := range results {
		if res.Success {
			m.persistActive(res.RouteID, false)
		}
	}
	return model.Summarize(results), nil
}

// Refresh re-checks every route and stores the observed state. Routes that
// could not be observed keep their previous value. It returns the number of
// routes whose state changed.
func (m *Manager) Refresh(ctx context.Context) (int, error) {
	m.batch.Lock()
	defer m.batch.Unlock()

	all, err := m.store.ListRoutes(nil)
	if err != nil {
		return 0, err
	}
	states := m.rec.CheckRoutesStatus(ctx, all)

	changed := 0
	for _, r := range all {
		active, ok := states[r.ID]
		if !ok || active == r.IsActive {
			continue
		}
		if m.persistActive(r.ID, active) {
			changed++
		}
	}
	log.Debug("Refreshed route status", "routes", len(all), "observed", len(states), "changed", changed)
	return changed, nil
}

// RunRefresh calls Refresh every interval until ctx is done.
func (m *Manager) RunRefresh(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("Periodic route refresh started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := m.Refresh(ctx); err != nil {
				log.Error("Periodic route refresh failed", "error", err)
			}
		}
	}
}

// persistActive stores the observed state. Store failures are logged and the
// previous value is kept.
func (m *Manager) persistActive(id string, active bool) bool {
	if err := m.store.SetRouteActive(id, active); err != nil {
		if !errors.Is(err, storage.ErrRouteNotFound) {
			log.Error("Failed to store route state", "id", id, "active", active, "error", err)
		}
		return false
	}
	return true
}
