package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/martinsuchenak/routekeeper/internal/ipv4"
	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/martinsuchenak/routekeeper/internal/model"
	"github.com/martinsuchenak/routekeeper/internal/routes"
	"github.com/martinsuchenak/routekeeper/internal/service"
	"github.com/martinsuchenak/routekeeper/internal/storage"
)

// PortLister returns a fresh snapshot of the hardware ports.
type PortLister interface {
	ListPorts(ctx context.Context) ([]model.NetworkPort, error)
	Gateway(ctx context.Context, device string) (string, error)
}

// ServiceController drives the helper's registration.
type ServiceController interface {
	Status(ctx context.Context) service.Status
	Install(ctx context.Context) service.Status
	Uninstall(ctx context.Context) service.Status
}

// GatewayProber inspects a gateway without changing anything.
type GatewayProber interface {
	Probe(ctx context.Context, gateway string) model.GatewayProbe
}

// Handler handles HTTP requests
type Handler struct {
	routes  *routes.Manager
	ports   PortLister
	service ServiceController
	prober  GatewayProber
}

// NewHandler creates a new API handler
func NewHandler(rm *routes.Manager, ports PortLister, svc ServiceController, prober GatewayProber) *Handler {
	return &Handler{routes: rm, ports: ports, service: svc, prober: prober}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Route CRUD
	mux.HandleFunc("GET /api/routes", h.listRoutes)
	mux.HandleFunc("POST /api/routes", h.createRoute)
	mux.HandleFunc("GET /api/routes/{id}", h.getRoute)
	mux.HandleFunc("PUT /api/routes/{id}", h.updateRoute)
	mux.HandleFunc("DELETE /api/routes/{id}", h.deleteRoute)
	mux.HandleFunc("POST /api/routes/{id}/duplicate", h.duplicateRoute)

	// Routing table
	mux.HandleFunc("POST /api/routes/{id}/apply", h.applyRoute)
	mux.HandleFunc("POST /api/routes/{id}/remove", h.removeRoute)
	mux.HandleFunc("GET /api/routes/{id}/status", h.routeStatus)
	mux.HandleFunc("GET /api/routes/{id}/probe", h.probeRoute)
	mux.HandleFunc("POST /api/routes/apply", h.applyAll)
	mux.HandleFunc("POST /api/routes/remove", h.removeAll)
	mux.HandleFunc("POST /api/routes/refresh", h.refresh)

	// Import / export
	mux.HandleFunc("GET /api/routes/export", h.exportRoutes)
	mux.HandleFunc("POST /api/routes/import", h.importRoutes)

	// Ports and helper service
	mux.HandleFunc("GET /api/ports", h.listPorts)
	mux.HandleFunc("GET /api/ports/{device}/gateway", h.portGateway)
	mux.HandleFunc("GET /api/service", h.serviceStatus)
	mux.HandleFunc("POST /api/service/install", h.installService)
	mux.HandleFunc("POST /api/service/uninstall", h.uninstallService)
}

// listRoutes handles GET /api/routes
func (h *Handler) listRoutes(w http.ResponseWriter, r *http.Request) {
	filter := &model.RouteFilter{
		Name:       r.URL.Query().Get("name"),
		ActiveOnly: r.URL.Query().Get("active") == "true",
	}

	list, err := h.routes.List(filter)
	if err != nil {
		log.Error("Failed to list routes", "error", err)
		h.internalError(w, err)
		return
	}

	log.Debug("Listed routes", "count", len(list))
	h.writeJSON(w, http.StatusOK, list)
}

// getRoute handles GET /api/routes/{id}
func (h *Handler) getRoute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	route, err := h.routes.Get(id)
	if err != nil {
		h.storageError(w, err, id)
		return
	}
	h.writeJSON(w, http.StatusOK, route)
}

// createRoute handles POST /api/routes
func (h *Handler) createRoute(w http.ResponseWriter, r *http.Request) {
	var route model.Route
	if err := json.NewDecoder(r.Body).Decode(&route); err != nil {
		log.Warn("Invalid route creation request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	route.ID = ""

	if err := h.routes.Create(&route); err != nil {
		h.storageError(w, err, "")
		return
	}
	h.writeJSON(w, http.StatusCreated, route)
}

// updateRoute handles PUT /api/routes/{id}
func (h *Handler) updateRoute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var update model.RouteUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Warn("Invalid route update request body", "error", err, "id", id)
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	route, err := h.routes.Update(id, &update)
	if err != nil {
		h.storageError(w, err, id)
		return
	}
	h.writeJSON(w, http.StatusOK, route)
}

// deleteRoute handles DELETE /api/routes/{id}. When the route had to be
// taken out of the routing table first, the removal result is returned.
func (h *Handler) deleteRoute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	removal, err := h.routes.Delete(r.Context(), id)
	if err != nil {
		h.storageError(w, err, id)
		return
	}
	if removal != nil {
		h.writeJSON(w, http.StatusOK, removal)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// duplicateRoute handles POST /api/routes/{id}/duplicate
func (h *Handler) duplicateRoute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	dup, err := h.routes.Duplicate(id)
	if err != nil {
		h.storageError(w, err, id)
		return
	}
	h.writeJSON(w, http.StatusCreated, dup)
}

// applyRoute handles POST /api/routes/{id}/apply
func (h *Handler) applyRoute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res, err := h.routes.Apply(r.Context(), id)
	if err != nil {
		h.storageError(w, err, id)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// removeRoute handles POST /api/routes/{id}/remove
func (h *Handler) removeRoute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res, err := h.routes.Remove(r.Context(), id)
	if err != nil {
		h.storageError(w, err, id)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

// RouteStatus is the body of GET /api/routes/{id}/status.
type RouteStatus struct {
	Route    *model.Route `json:"route"`
	Observed bool         `json:"observed"`
}

// routeStatus handles GET /api/routes/{id}/status
func (h *Handler) routeStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	route, observed, err := h.routes.Status(r.Context(), id)
	if err != nil {
		h.storageError(w, err, id)
		return
	}
	h.writeJSON(w, http.StatusOK, RouteStatus{Route: route, Observed: observed})
}

// probeRoute handles GET /api/routes/{id}/probe
func (h *Handler) probeRoute(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	route, err := h.routes.Get(id)
	if err != nil {
		h.storageError(w, err, id)
		return
	}
	if h.prober == nil {
		h.writeError(w, http.StatusNotImplemented, "gateway probing is not available")
		return
	}
	h.writeJSON(w, http.StatusOK, h.prober.Probe(r.Context(), route.Gateway))
}

// BatchResponse is returned by the apply and remove batch endpoints.
type BatchResponse struct {
	model.BatchSummary
	Message string `json:"message"`
}

// applyAll handles POST /api/routes/apply
func (h *Handler) applyAll(w http.ResponseWriter, r *http.Request) {
	summary, err := h.routes.ApplyAll(r.Context())
	if err != nil {
		h.internalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, BatchResponse{BatchSummary: summary, Message: summary.Message()})
}

// removeAll handles POST /api/routes/remove
func (h *Handler) removeAll(w http.ResponseWriter, r *http.Request) {
	summary, err := h.routes.RemoveAll(r.Context())
	if err != nil {
		h.internalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, BatchResponse{BatchSummary: summary, Message: summary.Message()})
}

// refresh handles POST /api/routes/refresh and returns the refreshed routes.
func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if _, err := h.routes.Refresh(r.Context()); err != nil {
		h.internalError(w, err)
		return
	}
	list, err := h.routes.List(nil)
	if err != nil {
		h.internalError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

// listPorts handles GET /api/ports
func (h *Handler) listPorts(w http.ResponseWriter, r *http.Request) {
	ports, err := h.ports.ListPorts(r.Context())
	if err != nil {
		log.Warn("Port discovery failed", "error", err)
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, ports)
}

// PortGateway is the body of GET /api/ports/{device}/gateway.
type PortGateway struct {
	Device  string `json:"device"`
	Gateway string `json:"gateway"`
}

// portGateway handles GET /api/ports/{device}/gateway
func (h *Handler) portGateway(w http.ResponseWriter, r *http.Request) {
	device := r.PathValue("device")
	gw, err := h.ports.Gateway(r.Context(), device)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, PortGateway{Device: device, Gateway: gw})
}

// serviceStatus handles GET /api/service
func (h *Handler) serviceStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Status(r.Context()))
}

// installService handles POST /api/service/install
func (h *Handler) installService(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Install(r.Context()))
}

// uninstallService handles POST /api/service/uninstall
func (h *Handler) uninstallService(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Uninstall(r.Context()))
}

// storageError maps route manager errors to responses.
func (h *Handler) storageError(w http.ResponseWriter, err error, id string) {
	var verr *ipv4.ValidationError
	switch {
	case errors.As(err, &verr):
		log.Warn("Rejected invalid route", "id", id, "error", err)
		h.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid route", "fields": verr.Fields})
	case errors.Is(err, storage.ErrRouteNotFound), errors.Is(err, storage.ErrInvalidID):
		log.Warn("Route not found", "id", id)
		h.writeError(w, http.StatusNotFound, "route not found")
	default:
		log.Error("Route operation failed", "error", err, "id", id)
		h.internalError(w, err)
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// internalError logs the error and writes a generic 500 response
func (h *Handler) internalError(w http.ResponseWriter, err error) {
	log.Error("Internal server error", "error", err)
	h.writeError(w, http.StatusInternalServerError, "Internal Server Error")
}
