// Package reconciler turns route definitions into route(8) commands run by
// the privileged helper and interprets their text output.
package reconciler

import (
	"context"

	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/martinsuchenak/routekeeper/internal/model"
)

// CommandRunner sends one command line to the privileged helper.
type CommandRunner interface {
	RunCommand(ctx context.Context, command string) model.CommandResult
}

// Observer is told the outcome of every add, remove and status probe.
type Observer interface {
	RouteOperation(op string, success bool)
}

// Operation names passed to Observer.
const (
	OpAdd    = "add"
	OpRemove = "remove"
	OpCheck  = "check"
)

// Reconciler applies, removes and checks routes one command at a time. None
// of its methods return errors; failures are reported in the results.
type Reconciler struct {
	runner   CommandRunner
	strategy Strategy
	observer Observer
}

func New(runner CommandRunner, strategy Strategy, observer Observer) *Reconciler {
	return &Reconciler{runner: runner, strategy: strategy, observer: observer}
}

// Strategy returns the strategy commands are built with.
func (r *Reconciler) Strategy() Strategy {
	return r.strategy
}

func (r *Reconciler) observe(op string, success bool) {
	if r.observer != nil {
		r.observer.RouteOperation(op, success)
	}
}

func invalidResult(route *model.Route, err error) model.RouteResult {
	return model.RouteResult{
		RouteID:   route.ID,
		RouteName: route.Name,
		Message:   err.Error(),
		Kind:      model.FailureCommand,
	}
}

// run executes command and classifies a delivered output with parse.
func (r *Reconciler) run(ctx context.Context, route *model.Route, command string, parse func(string) (bool, string)) model.RouteResult {
	res := r.runner.RunCommand(ctx, command)
	result := model.RouteResult{RouteID: route.ID, RouteName: route.Name}
	if !res.Delivered() {
		result.Message = res.Output
		result.Kind = res.Kind
		return result
	}
	result.Success, result.Message = parse(res.Output)
	if !result.Success {
		result.Kind = model.FailureCommand
	}
	return result
}

// AddRoute installs route in the routing table.
func (r *Reconciler) AddRoute(ctx context.Context, route *model.Route) model.RouteResult {
	command, err := r.strategy.AddCommand(route)
	if err != nil {
		log.Warn("Refusing to add invalid route", "id", route.ID, "name", route.Name, "error", err)
		r.observe(OpAdd, false)
		return invalidResult(route, err)
	}

	result := r.run(ctx, route, command, ParseAddOutput)
	r.observe(OpAdd, result.Success)
	if result.Success {
		log.Info("Route added", "id", route.ID, "name", route.Name, "command", command)
	} else {
		log.Warn("Route add failed", "id", route.ID, "name", route.Name, "command", command, "kind", result.Kind, "message", result.Message)
	}
	return result
}

// RemoveRoute deletes route from the routing table.
func (r *Reconciler) RemoveRoute(ctx context.Context, route *model.Route) model.RouteResult {
	command, err := r.strategy.DeleteCommand(route)
	if err != nil {
		log.Warn("Refusing to remove invalid route", "id", route.ID, "name", route.Name, "error", err)
		r.observe(OpRemove, false)
		return invalidResult(route, err)
	}

	result := r.run(ctx, route, command, ParseDeleteOutput)
	r.observe(OpRemove, result.Success)
	if result.Success {
		log.Info("Route removed", "id", route.ID, "name", route.Name, "command", command)
	} else {
		log.Warn("Route removal failed", "id", route.ID, "name", route.Name, "command", command, "kind", result.Kind, "message", result.Message)
	}
	return result
}

// probe returns whether route is installed and whether that could be observed
// at all.
func (r *Reconciler) probe(ctx context.Context, route *model.Route) (active, observed bool) {
	command, err := r.strategy.StatusCommand(route)
	if err != nil {
		log.Debug("Skipping status check of invalid route", "id", route.ID, "error", err)
		return false, false
	}
	res := r.runner.RunCommand(ctx, command)
	if !res.Delivered() {
		log.Debug("Route status unknown", "id", route.ID, "kind", res.Kind, "output", res.Output)
		r.observe(OpCheck, false)
		return false, false
	}
	r.observe(OpCheck, true)
	return ParseStatusOutput(res.Output, r.strategy, route), true
}

// IsRouteActive reports whether route currently appears in the routing
// table. Anything that prevents a check reports false.
func (r *Reconciler) IsRouteActive(ctx context.Context, route *model.Route) bool {
	active, _ := r.probe(ctx, route)
	return active
}

// ApplyRoutes adds every route in order. A failure never stops the batch.
func (r *Reconciler) ApplyRoutes(ctx context.Context, routes []model.Route) []model.RouteResult {
	results := make([]model.RouteResult, 0, len(routes))
	for i := range routes {
		results = append(results, r.AddRoute(ctx, &routes[i]))
	}
	logBatch("apply", results)
	return results
}

// RemoveRoutes deletes every route in order. A failure never stops the batch.
func (r *Reconciler) RemoveRoutes(ctx context.Context, routes []model.Route) []model.RouteResult {
	results := make([]model.RouteResult, 0, len(routes))
	for i := range routes {
		results = append(results, r.RemoveRoute(ctx, &routes[i]))
	}
	logBatch("remove", results)
	return results
}

// CheckRoutesStatus probes every route in order and maps route ID to its
// observed state. Routes whose state could not be observed (helper down,
// invalid definition) are left out so callers keep their cached value.
func (r *Reconciler) CheckRoutesStatus(ctx context.Context, routes []model.Route) map[string]bool {
	states := make(map[string]bool, len(routes))
	for i := range routes {
		active, observed := r.probe(ctx, &routes[i])
		if observed {
			states[routes[i].ID] = active
		}
	}
	log.Debug("Checked route status", "routes", len(routes), "observed", len(states))
	return states
}

// InterfaceGateway returns the gateway iface uses for outbound traffic.
func (r *Reconciler) InterfaceGateway(ctx context.Context, iface string) (string, bool) {
	command, err := InterfaceGatewayCommand(iface)
	if err != nil {
		return "", false
	}
	res := r.runner.RunCommand(ctx, command)
	if !res.Delivered() {
		return "", false
	}
	return ParseGatewayOutput(res.Output)
}

func logBatch(op string, results []model.RouteResult) {
	summary := model.Summarize(results)
	log.Info("Route batch finished", "op", op, "succeeded", summary.Succeeded, "failed", summary.Failed)
}
