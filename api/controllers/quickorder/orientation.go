package quickorder

import (
	"net/http"

	"github.com/printforge/quickorder-backend/api/responses"
	"github.com/printforge/quickorder-backend/api/validators"
	"github.com/printforge/quickorder-backend/internal/pipeline"
	"github.com/printforge/quickorder-backend/pkg/logger"
)

type setOrientingRequest struct {
	FileID *string `json:"file_id"`
}

// SetOrienting selects (or clears) the file open in the 3D viewer.
func SetOrienting(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := orchestratorFor(registry, r)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		var body setOrientingRequest
		if err := validators.DecodeJSON(r, &body); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		if err := orch.SetCurrentlyOrienting(body.FileID); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, orch.Snapshot())
	}
}

// ApplyOrientation mirrors a viewer buffer write into stored state.
func ApplyOrientation(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := orchestratorFor(registry, r)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		var snapshot pipeline.OrientationSnapshot
		if err := validators.DecodeJSON(r, &snapshot); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		if err := orch.ApplyOrientation(snapshot); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, orch.Snapshot())
	}
}

// LockOrientation persists the current file's pose and locks it.
func LockOrientation(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := orchestratorFor(registry, r)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		if err := orch.LockOrientation(r.Context()); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, orch.Snapshot())
	}
}
