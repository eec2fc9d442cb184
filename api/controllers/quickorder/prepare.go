package quickorder

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/printforge/quickorder-backend/api/responses"
	"github.com/printforge/quickorder-backend/internal/pipeline"
	"github.com/printforge/quickorder-backend/pkg/logger"
)

type prepareResponse struct {
	SupportsWarning bool          `json:"supports_warning"`
	FailedFiles     []string      `json:"failed_files,omitempty"`
	State           pipeline.View `json:"state"`
}

// PrepareFiles runs the slicing batch for every uploaded file. Partial
// failures return 200 with the failed ids; the per-file detail lives in
// the state payload.
func PrepareFiles(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := orchestratorFor(registry, r)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		report, err := orch.PrepareFiles(r.Context())
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		if report.Err != nil {
			logg.Warn(r.Context(), report.Err.Error())
		}
		responses.JSON(w, http.StatusOK, prepareResponse{
			SupportsWarning: report.SupportsWarning,
			FailedFiles:     report.FailedFiles,
			State:           orch.Snapshot(),
		})
	}
}

// AcceptFallback records approval of a supports-disabled estimate.
func AcceptFallback(registry *pipeline.Registry, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orch, err := orchestratorFor(registry, r)
		if err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		if err := orch.AcceptFallback(chi.URLParam(r, "fileID")); err != nil {
			responses.Error(r.Context(), w, logg, err)
			return
		}
		responses.JSON(w, http.StatusOK, orch.Snapshot())
	}
}
