package controllers

import (
	"net/http"

	"github.com/printforge/quickorder-backend/api/responses"
	"github.com/printforge/quickorder-backend/internal/materials"
	"github.com/printforge/quickorder-backend/pkg/logger"
)

// ListMaterials serves the filament catalog for the configurator.
func ListMaterials(svc materials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.List(r.Context())
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, rows)
	}
}
