package storage

import (
	"errors"

	"github.com/martinsuchenak/routekeeper/internal/model"
)

var (
	ErrRouteNotFound = errors.New("route not found")
	ErrInvalidID     = errors.New("invalid route ID")
)

// Storage persists route definitions. It never talks to the routing table.
type Storage interface {
	ListRoutes(filter *model.RouteFilter) ([]model.Route, error)
	GetRoute(id string) (*model.Route, error)
	CreateRoute(route *model.Route) error
	UpdateRoute(id string, update *model.RouteUpdate) (*model.Route, error)
	DeleteRoute(id string) error
	DuplicateRoute(id string) (*model.Route, error)
	SetRouteActive(id string, active bool) error
	Close() error
}
