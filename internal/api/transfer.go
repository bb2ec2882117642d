package api

import (
	"bytes"
	"net/http"

	"github.com/martinsuchenak/routekeeper/internal/log"
	"github.com/martinsuchenak/routekeeper/internal/model"
	"github.com/martinsuchenak/routekeeper/internal/routefile"
)

const maxImportSize = 1 << 20

// ImportResponse lists the routes created by an import.
type ImportResponse struct {
	Created []model.Route `json:"created"`
}

// exportRoutes handles GET /api/routes/export
func (h *Handler) exportRoutes(w http.ResponseWriter, r *http.Request) {
	list, err := h.routes.List(nil)
	if err != nil {
		h.internalError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := routefile.Write(&buf, list); err != nil {
		h.internalError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="routes.yaml"`)
	w.Write(buf.Bytes())
}

// importRoutes handles POST /api/routes/import. Nothing is created unless
// every entry in the document is valid.
func (h *Handler) importRoutes(w http.ResponseWriter, r *http.Request) {
	list, err := routefile.Read(http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		log.Warn("Rejected route import", "error", err)
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created := make([]model.Route, 0, len(list))
	for i := range list {
		route := list[i]
		if err := h.routes.Create(&route); err != nil {
			log.Error("Import stopped", "imported", len(created), "error", err)
			h.internalError(w, err)
			return
		}
		created = append(created, route)
	}

	log.Info("Imported routes", "count", len(created))
	h.writeJSON(w, http.StatusCreated, ImportResponse{Created: created})
}
